package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"signup/internal/i18n"
	"signup/internal/signup"
)

type signupResponse struct {
	*signup.Confirmation
	Warning string `json:"warning,omitempty"`
}

type fieldErrorResponse struct {
	Field   signup.Field `json:"field"`
	Message string       `json:"message"`
}

type validationResponse struct {
	Errors  []fieldErrorResponse `json:"errors"`
	Warning string               `json:"warning,omitempty"`
}

// controller returns the controller of the form session, creating it when no
// submission is running for it. release must be called once Submit returns.
func (s *Server) controller(session string) (c *signup.Controller, release func()) {
	fresh := func() *signup.Controller {
		return signup.NewController(s.verifier, s.gateway, s.gateway)
	}
	if session == "" {
		return fresh(), func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.inflight[session]; ok {
		return c, func() {}
	}
	c = fresh()
	s.inflight[session] = c
	return c, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.inflight[session] == c {
			delete(s.inflight, session)
		}
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	l := i18n.FromRequest(r, s.defaultLang)

	var form signup.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, release := s.controller(r.URL.Query().Get("session"))
	sub, err := c.Submit(r.Context(), form)
	release()
	if errors.Is(err, signup.ErrSubmissionInProgress) {
		writeError(w, http.StatusTooManyRequests, l.T("signup.errorInProgress"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, l.T("signup.errorServerError"))
		return
	}

	warning := ""
	if sub.Warning != "" {
		warning = l.T(sub.Warning)
	}

	switch {
	case sub.State == signup.StateSucceeded:
		writeJSON(w, http.StatusCreated, signupResponse{Confirmation: sub.Confirmation, Warning: warning})
	case len(sub.Errors) > 0:
		for _, fe := range sub.Errors {
			if fe.Kind == signup.KindClosed {
				writeError(w, http.StatusConflict, l.T(fe.Key))
				return
			}
		}
		resp := validationResponse{Warning: warning}
		for _, fe := range sub.Errors {
			resp.Errors = append(resp.Errors, fieldErrorResponse{Field: fe.Field, Message: l.T(fe.Key)})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case sub.Message == "signup.errorAlreadyRegistered":
		writeError(w, http.StatusConflict, l.T(sub.Message))
	default:
		writeError(w, http.StatusInternalServerError, l.T("signup.errorServerError"))
	}
}

type verifyResponse struct {
	signup.Feedback
	Message string `json:"message,omitempty"`
}

// handleVerify answers live checks. With a session id, a newer check from the
// same form supersedes this one.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	l := i18n.FromRequest(r, s.defaultLang)
	handle := r.URL.Query().Get("handle")
	session := r.URL.Query().Get("session")

	var fb signup.Feedback
	if session == "" || s.sessions == nil {
		fb = signup.CheckHandle(r.Context(), s.verifier, handle)
	} else {
		var err error
		fb, err = s.sessions.Check(r.Context(), session, handle)
		if err != nil {
			return
		}
	}

	resp := verifyResponse{Feedback: fb}
	if fb.Key != "" {
		resp.Message = l.T(fb.Key)
	}
	writeJSON(w, http.StatusOK, resp)
}

type langRequest struct {
	Lang string `json:"lang"`
}

func (s *Server) handleLang(w http.ResponseWriter, r *http.Request) {
	var req langRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cookie := i18n.PreferenceCookie(req.Lang)
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, langRequest{Lang: cookie.Value})
}
