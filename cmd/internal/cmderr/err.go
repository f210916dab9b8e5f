package cmderr

// CLIErr wraps an error produced by a subcommand's own logic, as opposed
// to a cobra/pflag usage error, so Execute knows whether to print usage.
type CLIErr struct {
	Err error
}

func (e CLIErr) Error() string {
	return e.Err.Error()
}

// Cause implements the github.com/pkg/errors causer interface.
func (e CLIErr) Cause() error {
	return e.Err
}

// Unwrap implements the standard errors.Unwrap interface.
func (e CLIErr) Unwrap() error {
	return e.Err
}
