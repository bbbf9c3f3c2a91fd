package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/justinas/nosurf"
)

const homeTemplate = `<!doctype html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>Search</title>
</head>
<body>
	<form method="POST" action="/">
		<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
		<input type="text" name="prefix" value="{{.Prefix}}" autofocus>
		<button type="submit">Search</button>
	</form>
	{{with .Error}}<p class="error">{{.}}</p>{{end}}
	<div id="results">
	{{range .Words}}<div class='item'>{{.}}</div>
	{{end}}</div>
</body>
</html>
`

type homeData struct {
	CSRFToken string
	Prefix    string
	Words     []string
	Error     string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data homeData) {
	data.CSRFToken = nosurf.Token(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.home.Execute(w, data); err != nil {
		s.log.Infof("server error: rendering home page: %v", err)
	}
}

func (s *Server) homePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, homeData{})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.clientError(w, http.StatusBadRequest, err)
		return
	}

	prefix := r.PostForm.Get("prefix")
	result, err := s.suggest(prefix, 0)
	if errors.Is(err, ErrPrefixTooShort) {
		s.render(w, r, http.StatusUnprocessableEntity, homeData{Prefix: prefix, Error: err.Error()})
		return
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, homeData{Prefix: prefix, Words: result.Words})
}

func (s *Server) suggestJSON(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.clientError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	result, err := s.suggest(query.Get("prefix"), limit)
	if errors.Is(err, ErrPrefixTooShort) {
		s.clientError(w, http.StatusBadRequest, err)
		return
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.writeJSON(w, r, result)
}
