package hardening

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/journeyman-jobs/hardening/validation"
)

// Job posting document fields
const (
	JobFieldCompany        = "company"
	JobFieldLocation       = "location"
	JobFieldClassification = "classification"
	JobFieldLocalNumber    = "localNumber"
	JobFieldWage           = "wage"
	JobFieldWageCents      = "wageCents"
	JobFieldHours          = "hours"
	JobFieldStartDate      = "startDate"
	JobFieldNumberOfJobs   = "numberOfJobs"
	JobFieldQualifications = "qualifications"
	JobFieldAgreement      = "agreement"
	JobFieldNotes          = "notes"
	JobFieldDatePosted     = "datePosted"
)

// Bounds on job posting fields
const (
	MaxJobCompanyLength        = 200
	MaxJobLocationLength       = 200
	MaxJobStartDateLength      = 64
	MaxJobQualificationsLength = 2000
	MaxJobAgreementLength      = 200
	MaxJobNotesLength          = 5000
	MaxJobHours                = 84
	MaxJobOpenings             = 1000
)

// JobPosting is an unvalidated job posting as submitted by a caller
type JobPosting struct {
	Company        string
	Location       string
	Classification string
	LocalNumber    int
	Wage           float64 // hourly, in dollars

	// Optional fields. Zero values are omitted from the stored document,
	// except NumberOfJobs which defaults to 1.
	Hours          int
	StartDate      string
	NumberOfJobs   int
	Qualifications string
	Agreement      string
	Notes          string
}

// CreateJobPosting validates a job posting, assigns it a new id, stamps the
// posting date and writes it to collection through the regular write path.
// It returns the new document id.
func (s *SecureStore) CreateJobPosting(ctx context.Context, identity, collection string, job JobPosting) (id string, err error) {
	ctx, span, start := s.begin(ctx, OpCreateJobPosting, collection, identity)
	defer func() { s.finish(ctx, span, OpCreateJobPosting, identity, start, err) }()

	if err = s.checkCollection(identity, collection); err != nil {
		return "", err
	}

	data, err := s.jobData(job)
	if err != nil {
		return "", err
	}
	data[JobFieldDatePosted] = time.Now().UTC().Format(time.RFC3339)

	if err = s.validator.ValidateData(data); err != nil {
		return "", err
	}

	id = uuid.NewString()
	err = s.write(ctx, OpCreateJobPosting, identity, collection, id, func() error {
		return s.store.Set(ctx, collection, id, data, false)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// jobData runs every job field through its validator and builds the document
func (s *SecureStore) jobData(job JobPosting) (map[string]any, error) {
	v := s.validator

	local, err := v.ValidateLocalNumber(job.LocalNumber)
	if err != nil {
		return nil, err
	}
	classification, err := v.ParseClassification(job.Classification)
	if err != nil {
		return nil, err
	}
	wage, err := v.ValidateWage(job.Wage)
	if err != nil {
		return nil, err
	}

	company, err := v.SanitizeString(JobFieldCompany, job.Company, validation.StringRule{Min: 1, Max: MaxJobCompanyLength})
	if err != nil {
		return nil, err
	}
	location, err := v.SanitizeString(JobFieldLocation, job.Location, validation.StringRule{Min: 1, Max: MaxJobLocationLength})
	if err != nil {
		return nil, err
	}

	openings := job.NumberOfJobs
	if openings == 0 {
		openings = 1
	}
	if _, err := validation.ValidateInt(JobFieldNumberOfJobs, openings, 1, MaxJobOpenings); err != nil {
		return nil, err
	}

	data := map[string]any{
		JobFieldCompany:        company,
		JobFieldLocation:       location,
		JobFieldClassification: classification.String(),
		JobFieldLocalNumber:    local.Int(),
		JobFieldWage:           wage.Dollars(),
		JobFieldWageCents:      wage.Cents(),
		JobFieldNumberOfJobs:   openings,
	}

	if job.Hours != 0 {
		if _, err := validation.ValidateInt(JobFieldHours, job.Hours, 1, MaxJobHours); err != nil {
			return nil, err
		}
		data[JobFieldHours] = job.Hours
	}

	optional := []struct {
		field string
		value string
		max   int
	}{
		{JobFieldStartDate, job.StartDate, MaxJobStartDateLength},
		{JobFieldQualifications, job.Qualifications, MaxJobQualificationsLength},
		{JobFieldAgreement, job.Agreement, MaxJobAgreementLength},
		{JobFieldNotes, job.Notes, MaxJobNotesLength},
	}
	for _, o := range optional {
		value, err := v.SanitizeString(o.field, o.value, validation.StringRule{Max: o.max, AllowEmpty: true})
		if err != nil {
			return nil, err
		}
		if value != "" {
			data[o.field] = value
		}
	}

	return data, nil
}
