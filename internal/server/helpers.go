package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

var ErrPrefixTooShort = errors.New("prefix too short")

type suggestions struct {
	Prefix string   `json:"prefix"`
	Words  []string `json:"words"`
	Error  string   `json:"error,omitempty"`
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	s.log.Infof("server error: %v: method=%s uri=%s", err, method, uri)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (s *Server) clientError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// suggest queries the dictionary, applying the configured prefix and result
// limits. limit <= 0 asks for the configured maximum.
func (s *Server) suggest(prefix string, limit int) (suggestions, error) {
	if n := utf8.RuneCountInString(prefix); n < s.cfg.MinPrefix {
		return suggestions{}, fmt.Errorf("%w: %d characters, at least %d required",
			ErrPrefixTooShort, n, s.cfg.MinPrefix)
	}
	if s.cfg.Limit > 0 && (limit <= 0 || limit > s.cfg.Limit) {
		limit = s.cfg.Limit
	}

	words, err := s.dict.Suggest(prefix, limit)
	if err != nil {
		return suggestions{}, err
	}
	if words == nil {
		words = []string{}
	}
	return suggestions{Prefix: prefix, Words: words}, nil
}
