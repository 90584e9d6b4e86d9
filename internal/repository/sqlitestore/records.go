package sqlitestore

import (
	"time"

	"github.com/untibullet/teamform/internal/models"
)

type userRecord struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;not null"`
	Email    string `gorm:"index"`
	Phone    string `gorm:"index"`
	RealName string
	Major    string
}

func (userRecord) TableName() string { return "users" }

type userSkillRecord struct {
	ID     int64  `gorm:"primaryKey"`
	UserID int64  `gorm:"index;not null"`
	Skill  string `gorm:"not null"`
}

func (userSkillRecord) TableName() string { return "user_skills" }

type competitionRecord struct {
	ID        int64  `gorm:"primaryKey"`
	Title     string `gorm:"not null"`
	StartTime *time.Time
	EndTime   *time.Time
}

func (competitionRecord) TableName() string { return "competitions" }

type teamRecord struct {
	ID            int64  `gorm:"primaryKey"`
	Name          string `gorm:"not null"`
	Description   string
	LeaderID      int64 `gorm:"index;not null"`
	CompetitionID int64 `gorm:"index"`
	NeedSkills    string
	CreatedAt     time.Time `gorm:"autoCreateTime:false"`
}

func (teamRecord) TableName() string { return "teams" }

type memberRecord struct {
	TeamID   int64     `gorm:"primaryKey;autoIncrement:false"`
	UserID   int64     `gorm:"primaryKey;autoIncrement:false;index"`
	Role     string    `gorm:"not null"`
	Status   string    `gorm:"not null"`
	JoinedAt time.Time `gorm:"not null"`
}

func (memberRecord) TableName() string { return "team_members" }

type applicationRecord struct {
	ID              int64  `gorm:"primaryKey"`
	UserID          int64  `gorm:"index:idx_team_applications_pair;not null"`
	TeamID          int64  `gorm:"index:idx_team_applications_pair;not null"`
	LeaderID        int64  `gorm:"index;not null"`
	Type            string `gorm:"not null"`
	Status          string `gorm:"not null"`
	RejectionReason *string
	Message         string
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`
}

func (applicationRecord) TableName() string { return "team_applications" }

type participationRecord struct {
	ID            int64  `gorm:"primaryKey"`
	CompetitionID int64  `gorm:"index;not null"`
	TeamID        *int64 `gorm:"index"`
	UserID        int64  `gorm:"index;not null"`
	Mode          string `gorm:"column:participation_mode;not null"`
	Role          string `gorm:"not null"`
	Rank          *string
	CreatedAt     time.Time `gorm:"autoCreateTime:false"`
}

func (participationRecord) TableName() string { return "participations" }

type configRecord struct {
	ConfigKey   string `gorm:"primaryKey"`
	ConfigValue string `gorm:"not null"`
}

func (configRecord) TableName() string { return "configs" }

func (r userRecord) toModel(skills []string) *models.User {
	return &models.User{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		Phone:    r.Phone,
		RealName: r.RealName,
		Major:    r.Major,
		Skills:   skills,
	}
}

func (r competitionRecord) toModel() *models.Competition {
	return &models.Competition{
		ID:        r.ID,
		Title:     r.Title,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

func (r teamRecord) toModel() *models.Team {
	return &models.Team{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		LeaderID:      r.LeaderID,
		CompetitionID: r.CompetitionID,
		NeedSkills:    r.NeedSkills,
		CreatedAt:     r.CreatedAt,
	}
}

func (r memberRecord) toModel() models.Membership {
	return models.Membership{
		TeamID:   r.TeamID,
		UserID:   r.UserID,
		Role:     r.Role,
		Status:   r.Status,
		JoinedAt: r.JoinedAt,
	}
}

func newApplicationRecord(a *models.Application) applicationRecord {
	return applicationRecord{
		ID:              a.ID,
		UserID:          a.UserID,
		TeamID:          a.TeamID,
		LeaderID:        a.LeaderID,
		Type:            a.Type,
		Status:          a.Status,
		RejectionReason: a.RejectionReason,
		Message:         a.Message,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (r applicationRecord) toModel() *models.Application {
	return &models.Application{
		ID:              r.ID,
		UserID:          r.UserID,
		TeamID:          r.TeamID,
		LeaderID:        r.LeaderID,
		Type:            r.Type,
		Status:          r.Status,
		RejectionReason: r.RejectionReason,
		Message:         r.Message,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (r participationRecord) toModel() models.Participation {
	return models.Participation{
		ID:            r.ID,
		CompetitionID: r.CompetitionID,
		TeamID:        r.TeamID,
		UserID:        r.UserID,
		Mode:          r.Mode,
		Role:          r.Role,
		Rank:          r.Rank,
		CreatedAt:     r.CreatedAt,
	}
}
