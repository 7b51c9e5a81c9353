package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/domain"
)

// ClassifyInput carries everything the classifier needs for one message.
// ExplicitStaffContext marks a conversation already verified as staff; it
// takes precedence over a fresh identity lookup so staff are not demoted
// mid-thread by phone-format quirks.
type ClassifyInput struct {
	Text                 string
	SenderPhone          string
	TenantID             string
	HasMedia             bool
	ExplicitStaffContext bool
	Status               domain.ConversationStatus
}

// matcher is one tier of the classification pipeline. Matchers run in fixed
// priority order; the first match at a tier wins.
type matcher interface {
	match(input ClassifyInput, senderIsStaff bool) (domain.Classification, bool)
}

// IntentClassifier decides whether a message is a staff command, a customer
// inquiry, or a conversation-closing phrase.
type IntentClassifier struct {
	resolver *IdentityResolver
	matchers []matcher
	logger   *zap.Logger
}

// NewIntentClassifier builds the classifier with its fixed matcher order:
// closing phrases, then staff commands, then the inquiry fallback.
func NewIntentClassifier(resolver *IdentityResolver, logger *zap.Logger) *IntentClassifier {
	return &IntentClassifier{
		resolver: resolver,
		matchers: []matcher{
			closingPhraseMatcher{},
			staffCommandMatcher{},
		},
		logger: logger,
	}
}

// Classify produces a fresh classification for one inbound message. It never
// fails to classify: the lowest-confidence fallback intent is always
// available, so every message yields a deterministic next action.
func (c *IntentClassifier) Classify(ctx context.Context, input ClassifyInput) (domain.Classification, error) {
	senderIsStaff := input.ExplicitStaffContext
	if !senderIsStaff {
		resolution, err := c.resolver.Resolve(ctx, input.TenantID, input.SenderPhone)
		if err != nil {
			return domain.Classification{}, err
		}
		senderIsStaff = resolution.Staff() != nil
	}

	for _, m := range c.matchers {
		if result, ok := m.match(input, senderIsStaff); ok {
			c.logger.Debug("message classified",
				zap.String("intent", string(result.Intent)),
				zap.Bool("is_staff", result.IsStaff),
				zap.Float64("confidence", result.Confidence))
			return result, nil
		}
	}

	return fallbackClassification(input), nil
}

// closingPhraseMatcher recognizes free-text acknowledgements that resolve an
// escalated conversation. Only escalated threads can close.
type closingPhraseMatcher struct{}

var closingPhrases = []string{
	"tidak, terima kasih",
	"tidak terima kasih",
	"terima kasih, cukup",
	"sudah cukup",
	"itu saja",
	"sudah, makasih",
	"ok makasih",
	"oke terima kasih",
	"no thanks",
	"no, thank you",
	"thanks, that's all",
	"that's all, thanks",
}

func (closingPhraseMatcher) match(input ClassifyInput, _ bool) (domain.Classification, bool) {
	if input.Status != domain.ConversationStatusEscalated {
		return domain.Classification{}, false
	}
	text := normalizeText(input.Text)
	for _, phrase := range closingPhrases {
		if text == phrase || strings.Contains(text, phrase) {
			return domain.Classification{
				Intent:     domain.IntentCloseConversation,
				Confidence: 1.0,
			}, true
		}
	}
	return domain.Classification{}, false
}

// commandPattern pairs a staff intent with its bilingual keyword sets. A
// family keyword alone matches at reduced confidence; family plus qualifier
// matches at full confidence.
type commandPattern struct {
	intent     domain.Intent
	family     []string
	qualifiers []string
}

var commandPatterns = []commandPattern{
	{
		intent:     domain.IntentStaffGetReport,
		family:     []string{"laporan", "report"},
		qualifiers: []string{"penjualan", "sales", "harian", "daily", "mingguan", "weekly", "bulanan", "monthly"},
	},
	{
		intent:     domain.IntentStaffGetInventory,
		family:     []string{"stok", "stock", "inventory", "inventaris"},
		qualifiers: []string{"unit", "mobil", "kendaraan", "vehicle"},
	},
	{
		intent:     domain.IntentStaffGetAnalytics,
		family:     []string{"analitik", "analytics"},
		qualifiers: []string{"wa", "whatsapp", "chat"},
	},
	{
		intent:     domain.IntentStaffGetStats,
		family:     []string{"statistik", "statistics", "stats"},
		qualifiers: []string{"penjualan", "sales", "bulan", "month"},
	},
	{
		intent:     domain.IntentStaffGetStatus,
		family:     []string{"status"},
		qualifiers: []string{"sistem", "system", "toko", "dealer"},
	},
}

const (
	confidenceSpecific = 0.9
	confidenceKeyword  = 0.75
)

// staffCommandMatcher recognizes the staff command vocabulary. Commands from
// senders with no staff standing degrade to the inquiry fallback so a
// customer typing "status" never triggers internal reports.
type staffCommandMatcher struct{}

func (staffCommandMatcher) match(input ClassifyInput, senderIsStaff bool) (domain.Classification, bool) {
	text := normalizeText(input.Text)
	if text == "" {
		return domain.Classification{}, false
	}

	for _, pattern := range commandPatterns {
		if !containsAnyWord(text, pattern.family) {
			continue
		}
		confidence := confidenceKeyword
		if containsAnyWord(text, pattern.qualifiers) {
			confidence = confidenceSpecific
		}
		if !senderIsStaff {
			return domain.Classification{}, false
		}
		return domain.Classification{
			Intent:     pattern.intent,
			IsStaff:    true,
			Confidence: confidence,
		}, true
	}
	return domain.Classification{}, false
}

func fallbackClassification(input ClassifyInput) domain.Classification {
	text := normalizeText(input.Text)
	if text == "" && !input.HasMedia {
		return domain.Classification{
			Intent:     domain.IntentUnknown,
			IsStaff:    input.ExplicitStaffContext,
			Confidence: 0.1,
		}
	}
	return domain.Classification{
		Intent:     domain.IntentCustomerInquiry,
		IsStaff:    input.ExplicitStaffContext,
		Confidence: 0.2,
	}
}

func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func containsAnyWord(text string, words []string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!'
	})
	for _, field := range fields {
		for _, word := range words {
			if field == word {
				return true
			}
		}
	}
	return false
}
