// Package eligibility содержит правила допуска к соревнованиям: пересечение
// по времени и лимиты одновременных участий. Все функции чистые, данные
// подготавливает вызывающий код.
package eligibility

import (
	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/models"
)

// Виды лимитов для QuotaExceeded
const (
	KindIndividual = "individual"
	KindLeader     = "leader"
	KindMember     = "member"
)

// Overlaps проверяет пересечение окон двух соревнований. Если у любого из
// них не задана граница, пересечение проверить нельзя и оно не считается
func Overlaps(a, b models.Competition) bool {
	if !a.HasWindow() || !b.HasWindow() {
		return false
	}
	return !(a.EndTime.Before(*b.StartTime) || a.StartTime.After(*b.EndTime))
}

// CheckTimeConflict возвращает TimeConflict для первого соревнования из joined,
// которое пересекается с target
func CheckTimeConflict(target models.Competition, joined []models.Competition) error {
	for _, c := range joined {
		if Overlaps(target, c) {
			return apperrors.TimeConflict(c.Title)
		}
	}
	return nil
}

// CountByRole считает записи об участии с указанной ролью
func CountByRole(records []models.Participation, role string) int {
	n := 0
	for _, r := range records {
		if r.Role == role {
			n++
		}
	}
	return n
}

// HasCompetition проверяет, есть ли у пользователя запись на соревнование
func HasCompetition(records []models.Participation, competitionID int64) bool {
	for _, r := range records {
		if r.CompetitionID == competitionID {
			return true
		}
	}
	return false
}

// CheckIndividualQuota лимит на индивидуальные участия
func CheckIndividualQuota(records []models.Participation, limits models.ParticipationLimits) error {
	if CountByRole(records, models.RoleIndividual) >= limits.IndividualMaxParticipants {
		return apperrors.QuotaExceeded(KindIndividual, limits.IndividualMaxParticipants)
	}
	return nil
}

// CheckLeaderQuota лимит на соревнования, где пользователь ведет команду
func CheckLeaderQuota(records []models.Participation, limits models.ParticipationLimits) error {
	if CountByRole(records, models.RoleLeader) >= limits.TeamMaxParticipants {
		return apperrors.QuotaExceeded(KindLeader, limits.TeamMaxParticipants)
	}
	return nil
}

// MemberQuotaReached сообщает, исчерпан ли лимит участий рядовым участником
func MemberQuotaReached(records []models.Participation, limits models.ParticipationLimits) bool {
	return CountByRole(records, models.RoleMember) >= limits.MemberMaxParticipants
}

// CheckMemberQuota лимит на участия рядовым участником команды
func CheckMemberQuota(records []models.Participation, limits models.ParticipationLimits) error {
	if MemberQuotaReached(records, limits) {
		return apperrors.QuotaExceeded(KindMember, limits.MemberMaxParticipants)
	}
	return nil
}

// CheckTeamInitiator допускает к регистрации команды только лидера.
// Рядовой участник получает MembersCannotSelfRegister, посторонний NotLeader
func CheckTeamInitiator(team models.Team, userID int64, isMember bool) error {
	if team.LeaderID == userID {
		return nil
	}
	if isMember {
		return apperrors.ErrMembersCannotSelfRegister
	}
	return apperrors.ErrNotLeader
}
