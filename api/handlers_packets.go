package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

const defaultPageLimit = 100

func (s *Server) handlePacketsList(r *http.Request) HTTPResponse {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultPageLimit)
	summaries := s.manager.Packets(offset, limit)
	return NewHTTPResponse(http.StatusOK, struct {
		Packets interface{} `json:"packets"`
		Offset  int         `json:"offset"`
		Limit   int         `json:"limit"`
		Total   int         `json:"total"`
	}{Packets: summaries, Offset: offset, Limit: limit, Total: s.manager.Count()})
}

func (s *Server) handlePacketGet(r *http.Request) HTTPResponse {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return NewHTTPError(err, http.StatusBadRequest, "invalid packet id")
	}
	pkt, err := s.manager.Packet(id)
	if err != nil {
		return NewHTTPError(err, http.StatusNotFound, "packet not found")
	}
	return NewHTTPResponse(http.StatusOK, pkt)
}

func (s *Server) handlePacketStats(r *http.Request) HTTPResponse {
	return NewHTTPResponse(http.StatusOK, s.manager.Stats())
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
