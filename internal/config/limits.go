package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/untibullet/teamform/internal/models"
	"go.uber.org/zap"
)

// LimitsWatcher отдает лимиты участия из секции participation и обновляет
// их при изменении файла конфигурации
type LimitsWatcher struct {
	mu     sync.RWMutex
	limits models.ParticipationLimits
	logger *zap.Logger
}

func NewLimitsWatcher(limits models.ParticipationLimits, logger *zap.Logger) *LimitsWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LimitsWatcher{limits: limits, logger: logger}
}

func (w *LimitsWatcher) ParticipationLimits(context.Context) (models.ParticipationLimits, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.limits, nil
}

// WatchLimits подписывает watcher на изменения файла конфигурации
func (c *Config) WatchLimits(w *LimitsWatcher) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		w.reload(c.v, e)
	})
	c.v.WatchConfig()
}

// reload перечитывает секцию participation. Если секция не разбирается,
// действующие лимиты сохраняются. Нулевой или отрицательный лимит допустим
// и закрывает соответствующий вид участия
func (w *LimitsWatcher) reload(v *viper.Viper, e fsnotify.Event) {
	var p ParticipationConfig
	if err := v.UnmarshalKey("participation", &p); err != nil {
		w.logger.Warn("LimitsWatcher: не удалось разобрать секцию participation",
			zap.String("file", e.Name), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.limits = p.Limits
	w.mu.Unlock()

	w.logger.Info("LimitsWatcher: лимиты участия обновлены",
		zap.String("file", e.Name),
		zap.String("op", e.Op.String()),
		zap.Int("team_max_participants", p.Limits.TeamMaxParticipants),
		zap.Int("individual_max_participants", p.Limits.IndividualMaxParticipants),
		zap.Int("member_max_participants", p.Limits.MemberMaxParticipants))
}
