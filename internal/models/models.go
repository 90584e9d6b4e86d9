// models/models.go
package models

import "time"

// User пользователь платформы с профилем и набором навыков
type User struct {
	ID       int64    `json:"id" db:"id"`
	Username string   `json:"username" db:"username"`
	Email    string   `json:"email,omitempty" db:"email"`
	Phone    string   `json:"phone,omitempty" db:"phone"`
	RealName string   `json:"real_name,omitempty" db:"real_name"`
	Major    string   `json:"major,omitempty" db:"major"`
	Skills   []string `json:"skills" db:"-"`
}

// DisplayName возвращает имя для сообщений об ошибках
func (u User) DisplayName() string {
	if u.RealName != "" {
		return u.RealName
	}
	return u.Username
}

// Team команда, собранная под конкретное соревнование
type Team struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description,omitempty" db:"description"`
	LeaderID      int64     `json:"leader_id" db:"leader_id"`
	CompetitionID int64     `json:"competition_id" db:"competition_id"`
	NeedSkills    string    `json:"need_skills" db:"need_skills"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Роли в команде
const (
	RoleLeader = "leader"
	RoleMember = "member"
)

// Статус участника команды. Удаление участника удаляет строку, поэтому
// других статусов нет
const MembershipActive = "active"

// Membership участие пользователя в команде
type Membership struct {
	TeamID   int64     `json:"team_id" db:"team_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	Role     string    `json:"role" db:"role"`
	Status   string    `json:"status" db:"status"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// Типы заявок
const (
	ApplicationApply  = "apply"
	ApplicationInvite = "invite"
)

// Статусы заявок
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Application заявка на вступление (apply) или приглашение от лидера (invite)
type Application struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	TeamID          int64     `json:"team_id" db:"team_id"`
	LeaderID        int64     `json:"leader_id" db:"leader_id"`
	Type            string    `json:"type" db:"type"`
	Status          string    `json:"status" db:"status"`
	RejectionReason *string   `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Message         string    `json:"message,omitempty" db:"message"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// IsPending сообщает, можно ли еще обработать заявку
func (a Application) IsPending() bool {
	return a.Status == StatusPending
}

// Режимы участия
const (
	ModeIndividual = "individual"
	ModeTeam       = "team"
)

// Роль в записи об участии. Для командного режима совпадает с ролью в команде
const RoleIndividual = "individual"

// Participation запись о регистрации пользователя на соревнование
type Participation struct {
	ID            int64     `json:"id" db:"id"`
	CompetitionID int64     `json:"competition_id" db:"competition_id"`
	TeamID        *int64    `json:"team_id,omitempty" db:"team_id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	Mode          string    `json:"participation_mode" db:"participation_mode"`
	Role          string    `json:"role" db:"role"`
	Rank          *string   `json:"rank,omitempty" db:"rank"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// BelongsToTeam проверяет, что запись сделана от имени указанной команды
func (p Participation) BelongsToTeam(teamID int64) bool {
	return p.TeamID != nil && *p.TeamID == teamID
}

// Competition соревнование. Границы окна могут отсутствовать
type Competition struct {
	ID        int64      `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	StartTime *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`
}

// HasWindow сообщает, заданы ли обе границы
func (c Competition) HasWindow() bool {
	return c.StartTime != nil && c.EndTime != nil
}

// ParticipationLimits лимиты одновременных участий по ролям
type ParticipationLimits struct {
	TeamMaxParticipants       int `json:"team_max_participants" mapstructure:"team_max_participants"`
	IndividualMaxParticipants int `json:"individual_max_participants" mapstructure:"individual_max_participants"`
	MemberMaxParticipants     int `json:"member_max_participants" mapstructure:"member_max_participants"`
}

// ParticipateConfigKey ключ лимитов участия в таблице configs
const ParticipateConfigKey = "PARTICIPATE_CONFIG"
