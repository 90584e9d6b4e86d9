// Package matchscore считает совместимость навыков пользователя с потребностями команды.
package matchscore

import (
	"math"
	"strings"

	"golang.org/x/text/width"
)

// Опорные значения оценки
const (
	MemberScore    = 100
	RedundantScore = 40
	NeutralScore   = 60
	FloorScore     = 20
	MaxScore       = 100

	// Доля навыков пользователя, уже имеющихся в команде, выше которой
	// кандидат считается избыточным
	RedundancyThreshold = 0.7
)

// Ширина уже приведена width.Narrow, но идеографическая запятая остается
// отдельным символом
var commaReplacer = strings.NewReplacer("，", ",", "、", ",", "､", ",")

// ParseSkills разбирает строку навыков: локализованные запятые приравниваются
// к ASCII-запятой, пробелы обрезаются, пустые и повторные значения отбрасываются
func ParseSkills(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	normalized := commaReplacer.Replace(width.Narrow.String(s))
	return Normalize(strings.Split(normalized, ","))
}

// Normalize чистит уже разбитый список навыков с сохранением порядка.
// Полноширинные символы приводятся к обычным, как в ParseSkills
func Normalize(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(width.Narrow.String(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Input данные для расчета по одной команде
type Input struct {
	UserSkills []string
	NeedSkills string
	// TeamSkills объединенные навыки текущих участников, может быть пустой
	TeamSkills string
	IsMember   bool
}

// Score возвращает оценку 0-100. Функция детерминирована и не обращается к хранилищу
func Score(in Input) int {
	if in.IsMember {
		return MemberScore
	}

	user := Normalize(in.UserSkills)

	if team := ParseSkills(in.TeamSkills); len(team) > 0 && len(user) > 0 {
		duplicates := intersect(user, team)
		if float64(duplicates)/float64(len(user)) > RedundancyThreshold {
			return RedundantScore
		}
	}

	need := ParseSkills(in.NeedSkills)
	if len(need) == 0 {
		return NeutralScore
	}
	if len(user) == 0 {
		return FloorScore
	}

	overlap := float64(intersect(user, need)) / float64(len(need))
	score := int(math.Round(float64(FloorScore) + overlap*float64(MaxScore-FloorScore)))
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// BatchScore считает оценки по каждой команде независимо
func BatchScore(inputs map[int64]Input) map[int64]int {
	out := make(map[int64]int, len(inputs))
	for teamID, in := range inputs {
		out[teamID] = Score(in)
	}
	return out
}

func intersect(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	n := 0
	for _, s := range a {
		if _, ok := set[s]; ok {
			n++
		}
	}
	return n
}
