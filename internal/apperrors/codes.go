package apperrors

import "net/http"

// Code машиночитаемый код ошибки, уходит клиенту как есть
type Code string

const (
	CodeInternal     Code = "INTERNAL"
	CodeInvalidInput Code = "INVALID_INPUT"

	// Не найденные сущности
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeTeamNotFound        Code = "TEAM_NOT_FOUND"
	CodeApplicationNotFound Code = "APPLICATION_NOT_FOUND"
	CodeCompetitionNotFound Code = "COMPETITION_NOT_FOUND"

	// Заявки и приглашения
	CodeAlreadyMember                Code = "ALREADY_MEMBER"
	CodeAlreadyApplied               Code = "ALREADY_APPLIED"
	CodeAlreadyInvited               Code = "ALREADY_INVITED"
	CodeAlreadyProcessed             Code = "ALREADY_PROCESSED"
	CodeNotLeader                    Code = "NOT_LEADER"
	CodeNotApplicant                 Code = "NOT_APPLICANT"
	CodeNotAnInvitation              Code = "NOT_AN_INVITATION"
	CodeNotAnApplication             Code = "NOT_AN_APPLICATION"
	CodeAmbiguousOrMissingIdentifier Code = "AMBIGUOUS_OR_MISSING_IDENTIFIER"

	// Состав команды
	CodeCannotRemoveLeader Code = "CANNOT_REMOVE_LEADER"
	CodeInvalidRole        Code = "INVALID_ROLE"

	// Участие в соревнованиях
	CodeMembersCannotSelfRegister Code = "MEMBERS_CANNOT_SELF_REGISTER"
	CodeTimeConflict              Code = "TIME_CONFLICT"
	CodeQuotaExceeded             Code = "QUOTA_EXCEEDED"
	CodeAlreadyRegistered         Code = "ALREADY_REGISTERED"
	CodeInvalidParticipationMode  Code = "INVALID_PARTICIPATION_MODE"
)

// HTTPStatus возвращает HTTP-статус для кода ошибки
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput, CodeInvalidRole, CodeInvalidParticipationMode, CodeAmbiguousOrMissingIdentifier:
		return http.StatusBadRequest
	case CodeUserNotFound, CodeTeamNotFound, CodeApplicationNotFound, CodeCompetitionNotFound:
		return http.StatusNotFound
	case CodeNotLeader, CodeNotApplicant, CodeMembersCannotSelfRegister, CodeCannotRemoveLeader:
		return http.StatusForbidden
	case CodeAlreadyMember, CodeAlreadyApplied, CodeAlreadyInvited, CodeAlreadyProcessed,
		CodeNotAnInvitation, CodeNotAnApplication, CodeTimeConflict, CodeQuotaExceeded, CodeAlreadyRegistered:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
