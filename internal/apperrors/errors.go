// Package apperrors описывает пользовательские ошибки движка формирования команд.
package apperrors

import (
	"errors"
	"strconv"
)

// Error доменная ошибка с кодом и метаданными для клиента
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, поэтому errors.Is(err, ErrTeamNotFound)
// работает и для ошибок с метаданными
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New создает ошибку с кодом и сообщением
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata создает ошибку с дополнительным контекстом
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap создает ошибку поверх исходной причины
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf достает код из цепочки ошибок, для чужих ошибок возвращает CodeInternal
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Sentinel-значения для errors.Is
var (
	ErrInvalidInput                 = New(CodeInvalidInput, "invalid input")
	ErrUserNotFound                 = New(CodeUserNotFound, "user not found")
	ErrTeamNotFound                 = New(CodeTeamNotFound, "team not found")
	ErrApplicationNotFound          = New(CodeApplicationNotFound, "application not found")
	ErrCompetitionNotFound          = New(CodeCompetitionNotFound, "competition not found")
	ErrAlreadyMember                = New(CodeAlreadyMember, "user is already a team member")
	ErrAlreadyApplied               = New(CodeAlreadyApplied, "application already exists for this team")
	ErrAlreadyInvited               = New(CodeAlreadyInvited, "user has already been invited to this team")
	ErrAlreadyProcessed             = New(CodeAlreadyProcessed, "application has already been processed")
	ErrNotLeader                    = New(CodeNotLeader, "only the team leader can perform this action")
	ErrNotApplicant                 = New(CodeNotApplicant, "only the requested user can act on this application")
	ErrNotAnInvitation              = New(CodeNotAnInvitation, "record is not an invitation")
	ErrNotAnApplication             = New(CodeNotAnApplication, "invitations are answered by the invited user")
	ErrAmbiguousOrMissingIdentifier = New(CodeAmbiguousOrMissingIdentifier, "identifier does not match exactly one user")
	ErrCannotRemoveLeader           = New(CodeCannotRemoveLeader, "team leader cannot be removed")
	ErrInvalidRole                  = New(CodeInvalidRole, "invalid team role")
	ErrMembersCannotSelfRegister    = New(CodeMembersCannotSelfRegister, "team members cannot register the team, ask the team leader")
	ErrTimeConflict                 = New(CodeTimeConflict, "competition time conflict")
	ErrQuotaExceeded                = New(CodeQuotaExceeded, "participation quota exceeded")
	ErrAlreadyRegistered            = New(CodeAlreadyRegistered, "already registered for this competition")
	ErrInvalidParticipationMode     = New(CodeInvalidParticipationMode, "invalid participation mode")
)

// TimeConflict ошибка пересечения по времени с уже выбранным соревнованием
func TimeConflict(competitionTitle string) *Error {
	return WithMetadata(CodeTimeConflict,
		"competition time conflicts with already joined competition "+strconv.Quote(competitionTitle),
		map[string]string{"competition": competitionTitle})
}

// MemberTimeConflict пересечение по времени у участника команды при регистрации команды
func MemberTimeConflict(memberName, competitionTitle string) *Error {
	return WithMetadata(CodeTimeConflict,
		"team member "+memberName+" already joined competition "+strconv.Quote(competitionTitle)+" with overlapping time",
		map[string]string{"competition": competitionTitle, "member": memberName})
}

// QuotaExceeded ошибка превышения лимита участий указанного вида
func QuotaExceeded(kind string, limit int) *Error {
	return WithMetadata(CodeQuotaExceeded,
		"participation quota exceeded: at most "+strconv.Itoa(limit)+" "+kind+" participations allowed",
		map[string]string{"kind": kind, "limit": strconv.Itoa(limit)})
}

// MemberQuotaExceeded то же, что QuotaExceeded, но для конкретного участника команды
func MemberQuotaExceeded(memberName string, limit int) *Error {
	return WithMetadata(CodeQuotaExceeded,
		"team member "+memberName+" already participates in "+strconv.Itoa(limit)+" competitions as a member",
		map[string]string{"kind": "member", "limit": strconv.Itoa(limit), "member": memberName})
}

// AlreadyRegistered ошибка повторной регистрации, member пустой для самого вызывающего
func AlreadyRegistered(member string) *Error {
	if member == "" {
		return ErrAlreadyRegistered
	}
	return WithMetadata(CodeAlreadyRegistered,
		"team member "+member+" is already registered for this competition",
		map[string]string{"member": member})
}
