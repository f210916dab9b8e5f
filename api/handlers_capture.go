package api

import (
	"encoding/json"
	"net/http"

	"github.com/netshark/netshark/capture"
	"github.com/netshark/netshark/model"
)

// startRequest is the optional body of POST /api/capture/start: any field
// present is applied as a setter before start() is called.
type startRequest struct {
	Interface   *string `json:"interface,omitempty"`
	Promiscuous *bool   `json:"promiscuous,omitempty"`
	Filter      *string `json:"filter,omitempty"`
}

func (s *Server) handleListInterfaces(r *http.Request) HTTPResponse {
	infos, err := s.manager.ListInterfaces()
	if err != nil {
		return NewHTTPError(err, http.StatusInternalServerError, "failed to list interfaces")
	}
	names := make([]string, 0, len(infos))
	for _, i := range infos {
		names = append(names, i.DisplayName())
	}
	return NewHTTPResponse(http.StatusOK, struct {
		Interfaces         []string             `json:"interfaces"`
		DetailedInterfaces []model.InterfaceInfo `json:"detailed_interfaces"`
	}{Interfaces: names, DetailedInterfaces: infos})
}

func (s *Server) handleCaptureStart(r *http.Request) HTTPResponse {
	if r.ContentLength > 0 {
		var body startRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return NewHTTPError(err, http.StatusBadRequest, "malformed request body")
		}
		if body.Interface != nil {
			if err := s.manager.SetInterface(*body.Interface); err != nil {
				return NewHTTPError(err, http.StatusConflict, "failed to set interface")
			}
		}
		if body.Promiscuous != nil {
			if err := s.manager.SetPromiscuous(*body.Promiscuous); err != nil {
				return NewHTTPError(err, http.StatusConflict, "failed to set promiscuous mode")
			}
		}
		if body.Filter != nil {
			if err := s.manager.SetFilter(*body.Filter); err != nil {
				return NewHTTPError(err, http.StatusConflict, "failed to set filter")
			}
		}
	}

	if err := s.manager.Start(); err != nil {
		return NewHTTPError(err, http.StatusInternalServerError, "failed to start capture")
	}
	return NewHTTPResponse(http.StatusOK, s.statusBody())
}

func (s *Server) handleCaptureStop(r *http.Request) HTTPResponse {
	if err := s.manager.Stop(); err != nil {
		return NewHTTPError(err, http.StatusInternalServerError, "failed to stop capture")
	}
	return NewHTTPResponse(http.StatusOK, s.statusBody())
}

func (s *Server) handleCaptureStatus(r *http.Request) HTTPResponse {
	return NewHTTPResponse(http.StatusOK, s.statusBody())
}

func (s *Server) handleCaptureDiagnostic(r *http.Request) HTTPResponse {
	infos, err := s.manager.ListInterfaces()
	if err != nil {
		infos = nil
	}
	return NewHTTPResponse(http.StatusOK, struct {
		Status     statusBody            `json:"status"`
		Config     model.Config          `json:"config"`
		Interfaces []model.InterfaceInfo `json:"interfaces"`
	}{
		Status:     s.statusBody(),
		Config:     s.manager.Config(),
		Interfaces: infos,
	})
}

func (s *Server) handleCaptureSettings(r *http.Request) HTTPResponse {
	var body model.Config
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return NewHTTPError(err, http.StatusBadRequest, "malformed request body")
	}
	if err := s.manager.SetInterface(body.Interface); err != nil {
		return NewHTTPError(err, http.StatusConflict, "failed to apply settings")
	}
	if err := s.manager.SetPromiscuous(body.Promiscuous); err != nil {
		return NewHTTPError(err, http.StatusConflict, "failed to apply settings")
	}
	if err := s.manager.SetFilter(body.Filter); err != nil {
		return NewHTTPError(err, http.StatusConflict, "failed to apply settings")
	}
	if body.BufferSize > 0 {
		if err := s.manager.SetBufferSize(body.BufferSize); err != nil {
			return NewHTTPError(err, http.StatusConflict, "failed to apply settings")
		}
	}
	return NewHTTPResponse(http.StatusOK, s.manager.Config())
}

type statusBody struct {
	IsRunning bool         `json:"is_running"`
	State     string       `json:"state"`
	Interface string       `json:"interface,omitempty"`
	Stats     *model.Stats `json:"stats,omitempty"`
}

func (s *Server) statusBody() statusBody {
	st := s.manager.Status()
	body := statusBody{
		IsRunning: st.IsRunning,
		State:     st.State.String(),
		Interface: st.Interface,
	}
	if st.IsRunning || st.State == capture.Stopping {
		stats := s.manager.Stats()
		body.Stats = &stats
	}
	return body
}
