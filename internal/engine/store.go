package engine

import (
	"context"
	"errors"

	"github.com/untibullet/teamform/internal/models"
)

// Ошибки хранилища. Обе реализации хранилища возвращают именно их,
// сервис переводит их в пользовательские ошибки apperrors
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicatePending = errors.New("pending application already exists for user and team")
	ErrDuplicateMember  = errors.New("membership already exists")
)

// UserDirectory поиск пользователей
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	// FindUsersByIdentifier ищет точное совпадение по username, email или телефону
	FindUsersByIdentifier(ctx context.Context, identifier string) ([]models.User, error)
}

// CompetitionCatalog доступ к окнам проведения соревнований
type CompetitionCatalog interface {
	GetCompetition(ctx context.Context, id int64) (*models.Competition, error)
}

// LimitsProvider источник лимитов участия. Движок запрашивает лимиты при
// каждой операции и не кэширует их
type LimitsProvider interface {
	ParticipationLimits(ctx context.Context) (models.ParticipationLimits, error)
}

// ApplicationFilter условия выборки заявок, пустые поля не участвуют
type ApplicationFilter struct {
	UserID   int64
	TeamID   int64
	LeaderID int64
	Type     string
	Status   string
}

// Tx операции над хранилищем в рамках одной транзакции
type Tx interface {
	UserDirectory
	CompetitionCatalog

	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	DeleteTeam(ctx context.Context, id int64) error

	AddMembership(ctx context.Context, m *models.Membership) error
	GetMembership(ctx context.Context, teamID, userID int64) (*models.Membership, error)
	ListMemberships(ctx context.Context, teamID int64) ([]models.Membership, error)
	DeleteMembership(ctx context.Context, teamID, userID int64) (bool, error)
	DeleteTeamMemberships(ctx context.Context, teamID int64) (int64, error)

	CreateApplication(ctx context.Context, a *models.Application) error
	GetApplication(ctx context.Context, id int64) (*models.Application, error)
	// FindApplication возвращает самую свежую заявку по паре пользователь-команда
	FindApplication(ctx context.Context, userID, teamID int64) (*models.Application, error)
	UpdateApplication(ctx context.Context, a *models.Application) error
	DeleteApplication(ctx context.Context, id int64) (bool, error)
	DeleteApplicationsForPair(ctx context.Context, userID, teamID int64) (int64, error)
	DeleteTeamApplications(ctx context.Context, teamID int64) (int64, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, error)

	CreateParticipation(ctx context.Context, p *models.Participation) error
	ListUserParticipations(ctx context.Context, userID int64) ([]models.Participation, error)
	ListTeamParticipations(ctx context.Context, teamID int64) ([]models.Participation, error)
	// DeleteUserParticipations удаляет все записи пользователя на соревнование
	DeleteUserParticipations(ctx context.Context, competitionID, userID int64) (int64, error)
	// DeleteTeamParticipations удаляет записи всех участников команды на соревнование
	DeleteTeamParticipations(ctx context.Context, competitionID, teamID int64) (int64, error)
	// DeleteMemberParticipations удаляет записи пользователя, сделанные от имени команды
	DeleteMemberParticipations(ctx context.Context, teamID, userID int64) (int64, error)
}

// Store транзакционное хранилище. Если fn возвращает ошибку, транзакция
// откатывается, а ошибка возвращается без изменений
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
