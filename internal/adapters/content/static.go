// Package content содержит источники текстов для автоматических сообщений.
package content

import (
	"context"
	"fmt"
	"math/rand"

	"telegram-moderation-bot/internal/domain"
)

// Corpus — набор готовых текстов одного вида.
type Corpus []string

var (
	Motivations = Corpus{
		"💪 Motivation: The only way to do great work is to love what you do.",
		"✨ Success Tip: Small progress is still progress. Keep going!",
		"🌟 Daily Inspiration: Your limitation is only your imagination.",
		"🎯 Focus: Push yourself, because no one else is going to do it for you.",
		"🌈 Mindset: Great things never come from comfort zones.",
	}
	Tips = Corpus{
		"💡 Productivity Tip: Take regular breaks to maintain focus.",
		"🛡️ Security Tip: Use strong, unique passwords for all accounts.",
		"💪 Health Tip: Drink water first thing in the morning.",
		"🧠 Learning Tip: Teach others to reinforce your own knowledge.",
		"💰 Finance Tip: Save at least 20% of your income.",
	}
	Headlines = Corpus{
		"📰 Tech News: AI continues to revolutionize industries worldwide!",
		"🌍 World News: Global cooperation on climate change intensifies.",
		"🚀 Space News: New discoveries about Mars captured public imagination.",
		"💻 Digital: Cybersecurity becomes top priority for organizations.",
		"🎮 Gaming: New game releases break previous sales records.",
	}
	Facts = Corpus{
		"🐘 Animal Fact: Elephants are the only mammals that can't jump.",
		"🌊 Ocean Fact: More people have been to the Moon than the Mariana Trench.",
		"🧠 Brain Fact: Your brain generates enough electricity to power a lightbulb.",
		"🌍 Earth Fact: Antarctica is the largest desert in the world.",
		"👁️ Body Fact: Your eyes blink about 20 times per minute.",
	}
	Jokes = Corpus{
		"😄 Joke: Why do programmers prefer dark mode? Because light attracts bugs.",
		"😄 Joke: I told my computer I needed a break, and it said no problem, it would go to sleep.",
		"😄 Joke: There are 10 kinds of people: those who understand binary and those who don't.",
		"😄 Joke: A SQL query walks into a bar, walks up to two tables and asks: may I join you?",
	}
	Quotes = Corpus{
		"📜 \"Simplicity is prerequisite for reliability.\" — Edsger Dijkstra",
		"📜 \"The best way to predict the future is to invent it.\" — Alan Kay",
		"📜 \"Well done is better than well said.\" — Benjamin Franklin",
		"📜 \"It always seems impossible until it's done.\" — Nelson Mandela",
		"📜 \"Do what you can, with what you have, where you are.\" — Theodore Roosevelt",
	}
)

// StaticProvider выбирает случайный текст из встроенных наборов.
type StaticProvider struct {
	general []Corpus
	quotes  Corpus
	pick    func(n int) int
}

// NewStaticProvider создает провайдер со всеми встроенными наборами.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		general: []Corpus{Motivations, Tips, Headlines, Facts, Jokes, Quotes},
		quotes:  Quotes,
		pick:    rand.Intn,
	}
}

// GetContent возвращает случайный текст категории. Для общей категории сначала
// случайно выбирается набор.
func (p *StaticProvider) GetContent(_ context.Context, category domain.Category) (string, error) {
	switch category {
	case domain.CategoryGeneral:
		corpus := p.general[p.pick(len(p.general))]
		return corpus[p.pick(len(corpus))], nil
	case domain.CategoryQuote:
		return p.quotes[p.pick(len(p.quotes))], nil
	default:
		return "", fmt.Errorf("%w: unknown content category %q", domain.ErrInvalidArgument, category)
	}
}
