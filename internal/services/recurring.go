package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/invoicebook/internal/metrics"
	"github.com/diewo77/invoicebook/validation"
	"go.uber.org/zap"
)

// DefaultMaxRecurrences caps a single recurring request.
const DefaultMaxRecurrences = 120

// Frequency is the spacing between recurring invoices.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Frequencies lists every accepted frequency.
var Frequencies = []Frequency{FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly}

// GenerateDates returns count dates starting at start, the i-th being start
// plus i frequency units. Month arithmetic follows time.AddDate, so day
// overflow rolls into the next month (Jan 31 + 1 month = Mar 2 in 2024).
func GenerateDates(start time.Time, freq Frequency, count int) ([]time.Time, error) {
	if count < 0 {
		return nil, invalid("count", validation.CodeOutOfRange)
	}
	var years, months, days int
	switch freq {
	case FrequencyWeekly:
		days = 7
	case FrequencyMonthly:
		months = 1
	case FrequencyQuarterly:
		months = 3
	case FrequencyYearly:
		years = 1
	default:
		return nil, invalid("frequency", validation.CodeInvalid)
	}
	dates := make([]time.Time, count)
	for i := range dates {
		dates[i] = start.AddDate(i*years, i*months, i*days)
	}
	return dates, nil
}

// RecurringInput describes a series of identical invoices.
type RecurringInput struct {
	CompanyID string
	Frequency Frequency
	StartDate time.Time
	Count     int
	Notes     string
	LineItems []LineItemInput
	// DueInDays is the payment term of each occurrence; 0 uses the service default.
	DueInDays int
}

// OccurrenceFailure reports one occurrence that could not be created.
type OccurrenceFailure struct {
	Index int       `json:"index"`
	Date  time.Time `json:"date"`
	Error string    `json:"error"`
}

// RecurringResult summarises a series. Created invoices stay persisted even
// when later occurrences fail.
type RecurringResult struct {
	Requested int                 `json:"requested"`
	Created   int                 `json:"created"`
	Invoices  []*InvoiceDetail    `json:"invoices"`
	Failures  []OccurrenceFailure `json:"failures"`
}

// RecurringService expands a RecurringInput into independent invoice creations.
type RecurringService struct {
	invoices  *InvoiceService
	companies *CompanyService
	log       *zap.Logger
	metrics   *metrics.Metrics
	maxCount  int
	dueInDays int
}

func NewRecurringService(invoices *InvoiceService, companies *CompanyService, log *zap.Logger, m *metrics.Metrics, maxCount, dueInDays int) *RecurringService {
	if maxCount <= 0 {
		maxCount = DefaultMaxRecurrences
	}
	if dueInDays <= 0 {
		dueInDays = DefaultDueInDays
	}
	return &RecurringService{
		invoices:  invoices,
		companies: companies,
		log:       log.Named("recurring.service"),
		metrics:   m,
		maxCount:  maxCount,
		dueInDays: dueInDays,
	}
}

func (s *RecurringService) validate(in RecurringInput) error {
	v := validation.Violations{}
	validation.Required("company_id", in.CompanyID, v)
	validation.OneOf("frequency", in.Frequency, Frequencies, v)
	validation.RangeInt("count", in.Count, 1, s.maxCount, v)
	if in.StartDate.IsZero() {
		v.Add("start_date", validation.CodeRequired)
	}
	if in.DueInDays < 0 {
		v.Add("due_in_days", validation.CodeOutOfRange)
	}
	buildLineItems(in.LineItems, v)
	return validationErr(v)
}

// Create issues one invoice per generated date. Each occurrence runs in its
// own transaction; a failure is recorded and the series continues.
func (s *RecurringService) Create(ctx context.Context, ownerID string, in RecurringInput) (*RecurringResult, error) {
	in.Frequency = Frequency(strings.ToLower(strings.TrimSpace(string(in.Frequency))))
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if _, err := s.companies.Get(ctx, ownerID, in.CompanyID); err != nil {
		return nil, err
	}
	dates, err := GenerateDates(dateOnly(in.StartDate), in.Frequency, in.Count)
	if err != nil {
		return nil, err
	}
	due := in.DueInDays
	if due == 0 {
		due = s.dueInDays
	}

	res := &RecurringResult{Requested: in.Count, Invoices: []*InvoiceDetail{}, Failures: []OccurrenceFailure{}}
	for i, date := range dates {
		inv, err := s.createOccurrence(ctx, ownerID, in, date, due)
		s.metrics.RecurringOccurrence(err)
		if err != nil {
			s.log.Warn("recurring occurrence failed",
				zap.String("company_id", in.CompanyID),
				zap.Int("index", i),
				zap.Time("date", date),
				zap.Error(err))
			res.Failures = append(res.Failures, OccurrenceFailure{Index: i, Date: date, Error: err.Error()})
			continue
		}
		res.Invoices = append(res.Invoices, inv)
		res.Created++
	}
	s.log.Info("recurring series generated",
		zap.String("company_id", in.CompanyID),
		zap.String("frequency", string(in.Frequency)),
		zap.Int("requested", res.Requested),
		zap.Int("created", res.Created))
	return res, nil
}

func (s *RecurringService) createOccurrence(ctx context.Context, ownerID string, in RecurringInput, date time.Time, due int) (*InvoiceDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	number, err := s.companies.NextInvoiceNumber(ctx, ownerID, in.CompanyID)
	if err != nil {
		return nil, err
	}
	return s.invoices.Create(ctx, ownerID, CreateInvoiceInput{
		CompanyID:     in.CompanyID,
		InvoiceNumber: number,
		InvoiceDate:   date,
		DueDate:       date.AddDate(0, 0, due),
		Notes:         in.Notes,
		LineItems:     in.LineItems,
	})
}
