package services

import (
	"fmt"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
)

type escalationStep struct {
	warnings   int
	punishment domain.Punishment
}

// EscalationPolicy — лестница наказаний: количество предупреждений → наказание.
type EscalationPolicy struct {
	steps []escalationStep
}

// NewEscalationPolicy строит политику из конфигурации. Ступени должны быть упорядочены
// и не ослаблять наказание.
func NewEscalationPolicy(levels []config.EscalationLevel) (*EscalationPolicy, error) {
	if err := config.ValidateEscalation(levels); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}

	steps := make([]escalationStep, 0, len(levels))
	for _, l := range levels {
		p := domain.Punishment{Kind: domain.PunishBan}
		if l.Action == "mute" {
			p = domain.Punishment{Kind: domain.PunishMute, Duration: l.Duration}
		}
		steps = append(steps, escalationStep{warnings: l.Warnings, punishment: p})
	}
	return &EscalationPolicy{steps: steps}, nil
}

// For возвращает наказание для количества предупреждений: ступень с наибольшим порогом,
// не превышающим count. Ниже первой ступени наказания нет.
func (p *EscalationPolicy) For(count int) domain.Punishment {
	result := domain.Punishment{Kind: domain.PunishNone}
	for _, s := range p.steps {
		if count < s.warnings {
			break
		}
		result = s.punishment
	}
	return result
}

// Thresholds возвращает ступени для вывода в /rules.
func (p *EscalationPolicy) Thresholds() map[int]domain.Punishment {
	out := make(map[int]domain.Punishment, len(p.steps))
	for _, s := range p.steps {
		out[s.warnings] = s.punishment
	}
	return out
}

// BanThreshold возвращает количество предупреждений, ведущее к бану, или 0, если бана нет.
func (p *EscalationPolicy) BanThreshold() int {
	for _, s := range p.steps {
		if s.punishment.Kind == domain.PunishBan {
			return s.warnings
		}
	}
	return 0
}
