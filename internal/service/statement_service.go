package service

import (
	"context"
	"errors"
	"fmt"

	"subtrack/internal/models"
	"subtrack/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoSubscriptions is returned when extraction succeeds but the model
// found no recurring charges in the uploaded files.
var ErrNoSubscriptions = errors.New("no subscriptions found")

// ErrInvalidCategory is returned for category labels outside
// keep/cancel/investigate.
var ErrInvalidCategory = errors.New("invalid category")

// ErrModel marks failures of the hosted model call (network or a response
// that does not conform to the requested schema).
var ErrModel = errors.New("model extraction failed")

// Extractor is the LLM boundary of the pipeline.
type Extractor interface {
	ExtractStatement(ctx context.Context, statementText string) (*ExtractionResult, error)
}

// TextExtractor turns uploaded file bytes into plain text.
type TextExtractor interface {
	ExtractText(fileName string, data []byte) (string, error)
}

// UploadedFile is one statement file received from the upload form.
type UploadedFile struct {
	Name string
	Data []byte
}

// Report is the savings summary derived from the current category
// assignments. It is recomputed on every request.
type Report struct {
	Keep          []models.Subscription
	Cancel        []models.Subscription
	Investigate   []models.Subscription
	Pending       []models.Subscription
	MonthlySaving decimal.Decimal
	YearlySaving  decimal.Decimal
	TotalMonthly  decimal.Decimal
	TotalYearly   decimal.Decimal
	Total         int
}

// StatementService orchestrates the upload pipeline:
// text extraction -> LLM extraction -> normalization -> session store.
type StatementService struct {
	sessions  *repository.SessionRepository
	files     TextExtractor
	extractor Extractor
	logger    *zap.Logger
}

func NewStatementService(sessions *repository.SessionRepository, files TextExtractor, extractor Extractor, logger *zap.Logger) *StatementService {
	return &StatementService{
		sessions:  sessions,
		files:     files,
		extractor: extractor,
		logger:    logger,
	}
}

// NewSession starts a fresh empty session.
func (s *StatementService) NewSession(ctx context.Context) (*models.Session, error) {
	return s.sessions.Create(ctx)
}

// Session returns the current state of a session.
func (s *StatementService) Session(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return s.sessions.Get(ctx, id)
}

// ProcessUpload runs every uploaded file through text extraction and the
// model, then replaces the session's result set with the combined outcome.
func (s *StatementService) ProcessUpload(ctx context.Context, sessionID uuid.UUID, uploads []UploadedFile) (*models.Session, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no files uploaded")
	}

	var transactions []models.Transaction
	var subscriptions []models.Subscription

	for _, upload := range uploads {
		text, err := s.files.ExtractText(upload.Name, upload.Data)
		if err != nil {
			return nil, err
		}

		result, err := s.extractor.ExtractStatement(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrModel, upload.Name, err)
		}

		for _, tx := range result.Transactions {
			transactions = append(transactions, models.Transaction{
				Date:        tx.Date,
				Description: tx.Description,
				Amount:      tx.Amount,
			})
		}
		for _, sub := range result.Subscriptions {
			subscriptions = append(subscriptions, newSubscription(sub))
		}
	}

	if len(subscriptions) == 0 {
		return nil, ErrNoSubscriptions
	}

	if err := s.sessions.ReplaceResult(ctx, sessionID, transactions, subscriptions); err != nil {
		return nil, err
	}

	return s.sessions.Get(ctx, sessionID)
}

// Categorize records the user's disposition for one subscription and
// returns the refreshed session.
func (s *StatementService) Categorize(ctx context.Context, sessionID, subscriptionID uuid.UUID, label string) (*models.Session, error) {
	category, ok := models.ParseCategory(label)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, label)
	}

	if err := s.sessions.SetCategory(ctx, sessionID, subscriptionID, category); err != nil {
		return nil, err
	}

	return s.sessions.Get(ctx, sessionID)
}

// BuildReport groups the session's subscriptions by category and sums the
// potential saving over everything marked Cancel.
func (s *StatementService) BuildReport(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(session.Subscriptions)}
	for _, sub := range session.Subscriptions {
		switch sub.Category {
		case models.CategoryKeep:
			report.Keep = append(report.Keep, sub)
		case models.CategoryCancel:
			report.Cancel = append(report.Cancel, sub)
			report.MonthlySaving = report.MonthlySaving.Add(sub.Monthly)
			report.YearlySaving = report.YearlySaving.Add(sub.Yearly)
		case models.CategoryInvestigate:
			report.Investigate = append(report.Investigate, sub)
		default:
			report.Pending = append(report.Pending, sub)
		}
		report.TotalMonthly = report.TotalMonthly.Add(sub.Monthly)
		report.TotalYearly = report.TotalYearly.Add(sub.Yearly)
	}

	return report, nil
}

// Totals sums the normalized monthly and yearly amounts over a result set.
func Totals(subscriptions []models.Subscription) (monthly, yearly decimal.Decimal) {
	for _, sub := range subscriptions {
		monthly = monthly.Add(sub.Monthly)
		yearly = yearly.Add(sub.Yearly)
	}
	return monthly, yearly
}

// weeksPerMonth is the usual 52/12 approximation.
var weeksPerMonth = decimal.RequireFromString("4.33")

func newSubscription(data SubscriptionData) models.Subscription {
	frequency := models.Frequency(data.Frequency)
	switch frequency {
	case models.FrequencyMonthly, models.FrequencyYearly, models.FrequencyWeekly:
	default:
		frequency = models.FrequencyMonthly
	}

	monthly, yearly := normalize(data.Amount, frequency)

	count := data.Count
	if count < 1 {
		count = 1
	}

	return models.Subscription{
		ID:          uuid.New(),
		Name:        data.Name,
		Amount:      data.Amount,
		Frequency:   frequency,
		LastCharged: data.LastCharged,
		Count:       count,
		CancelURL:   data.CancelURL,
		Rationale:   data.Rationale,
		Category:    models.CategoryPending,
		Monthly:     monthly,
		Yearly:      yearly,
	}
}

// normalize derives the monthly and yearly equivalents of a charge.
func normalize(amount decimal.Decimal, frequency models.Frequency) (monthly, yearly decimal.Decimal) {
	switch frequency {
	case models.FrequencyYearly:
		monthly = amount.Div(decimal.NewFromInt(12))
		yearly = amount
	case models.FrequencyWeekly:
		monthly = amount.Mul(weeksPerMonth)
		yearly = amount.Mul(decimal.NewFromInt(52))
	default:
		monthly = amount
		yearly = amount.Mul(decimal.NewFromInt(12))
	}
	return monthly.Round(2), yearly.Round(2)
}
