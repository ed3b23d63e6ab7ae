// Package signup drives a registration attempt from form validation through
// identity verification to the datastore insert.
package signup

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"signup/internal/db/models"
	"signup/internal/identity"
	"signup/internal/registry"
)

var ErrSubmissionInProgress = errors.New("submission already in progress")

type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StateVerifyingHandle State = "verifying-handle"
	StateSubmitting      State = "submitting"
	StateSucceeded       State = "succeeded"
	StateRejected        State = "rejected"
)

type Verifier interface {
	Verify(ctx context.Context, handle string) identity.Result
}

type Registrar interface {
	Register(ctx context.Context, handle, tournamentType string) (*models.Participant, error)
}

type TournamentLookup interface {
	Tournament(ctx context.Context, tournamentType string) (*models.Tournament, error)
}

type Confirmation struct {
	ParticipantID string `json:"-"`
	Code          string `json:"registrationId"`
	Handle        string `json:"username"`
	Tournament    string `json:"tournament"`
}

// Submission is the outcome of one Submit call.
type Submission struct {
	State        State
	Path         []State
	Errors       []FieldError
	Verification identity.Status
	// Warning is set when the handle could not be verified but the attempt
	// was allowed to go on.
	Warning      string
	Message      string
	Err          error
	Confirmation *Confirmation
}

func (s *Submission) enter(st State) {
	s.State = st
	s.Path = append(s.Path, st)
}

// Controller runs one submission at a time.
type Controller struct {
	verifier    Verifier
	registrar   Registrar
	tournaments TournamentLookup
	busy        atomic.Bool
}

// NewController wires the controller; tournaments may be nil to skip the
// registration-closed check.
func NewController(verifier Verifier, registrar Registrar, tournaments TournamentLookup) *Controller {
	return &Controller{verifier: verifier, registrar: registrar, tournaments: tournaments}
}

// Busy reports whether a submission is running.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// Submit returns ErrSubmissionInProgress, without any side effect, while
// another attempt is still running.
func (c *Controller) Submit(ctx context.Context, form Form) (*Submission, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInProgress
	}
	defer c.busy.Store(false)

	form = form.Normalized()
	sub := &Submission{}
	sub.enter(StateIdle)
	sub.enter(StateValidating)
	sub.Errors = Validate(form)

	if ValidHandle(form.Handle) {
		sub.enter(StateVerifyingHandle)
		res := c.verifier.Verify(ctx, form.Handle)
		sub.Verification = res.Status
		switch res.Status {
		case identity.NotFound:
			sub.Errors = append(sub.Errors, FieldError{Field: FieldHandle, Kind: KindNotFound, Key: "signup.errorUserNotFound"})
		case identity.Indeterminate:
			sub.Warning = "signup.validationWarning"
		}
	}

	if len(sub.Errors) == 0 && c.registrationClosed(ctx, form.Tournament) {
		sub.Errors = append(sub.Errors, FieldError{Field: FieldTournament, Kind: KindClosed, Key: "tournamentInfo.registrationClosed"})
	}

	if len(sub.Errors) > 0 {
		sub.enter(StateRejected)
		return sub, nil
	}

	sub.enter(StateSubmitting)
	p, err := c.registrar.Register(ctx, form.Handle, form.Tournament)
	if err != nil {
		log.Printf("Registration error for %q in %s: %v", form.Handle, form.Tournament, err)
		sub.Err = err
		if errors.Is(err, registry.ErrDuplicateRegistration) {
			sub.Message = "signup.errorAlreadyRegistered"
		} else {
			sub.Message = "signup.errorServerError"
		}
		sub.enter(StateRejected)
		return sub, nil
	}

	sub.Confirmation = &Confirmation{
		ParticipantID: p.ID,
		Code:          ConfirmationCode(p.ID),
		Handle:        form.Handle,
		Tournament:    form.Tournament,
	}
	sub.enter(StateSucceeded)
	return sub, nil
}

func (c *Controller) registrationClosed(ctx context.Context, tournamentType string) bool {
	if c.tournaments == nil {
		return false
	}
	t, err := c.tournaments.Tournament(ctx, tournamentType)
	if err != nil {
		if !errors.Is(err, registry.ErrTournamentNotFound) {
			log.Printf("Tournament status lookup failed for %s: %v", tournamentType, err)
		}
		return false
	}
	return t.RegistrationClosed()
}

// ConfirmationCode is the short id shown to the player: the first eight
// characters of the participant id, uppercased.
func ConfirmationCode(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}
