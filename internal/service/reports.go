package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/pipeline"
	"github.com/reportmill/internal/schedule"
)

// ReportService is the lifecycle manager for report schedules. It owns the
// timer registry: every mutation reconciles the registry against the
// persisted row, so an active schedule always holds exactly one live timer
// and an inactive one holds none.
type ReportService struct {
	db       *gorm.DB
	registry *schedule.Registry
	pipeline *pipeline.Pipeline
	resolver schedule.Resolver
	now      func() time.Time
	log      zerolog.Logger
}

func NewReportService(db *gorm.DB, pl *pipeline.Pipeline, resolver schedule.Resolver, log zerolog.Logger) *ReportService {
	s := &ReportService{
		db:       db,
		pipeline: pl,
		resolver: resolver,
		now:      time.Now,
		log:      log,
	}
	s.registry = schedule.NewRegistry(s.fired, log)
	return s
}

// Registry exposes the timer registry for health views and tests.
func (s *ReportService) Registry() *schedule.Registry {
	return s.registry
}

// Start loads every active schedule and arms its timer. A row that fails
// validation is skipped with a warning; a bad schedule must never abort
// startup.
func (s *ReportService) Start() error {
	var schedules []models.ReportSchedule
	if err := s.db.Where("active = ?", true).Find(&schedules).Error; err != nil {
		return fmt.Errorf("failed to load active schedules: %w", err)
	}

	for _, sched := range schedules {
		if err := validateSchedule(&sched); err != nil {
			s.log.Warn().Err(err).Uint("schedule_id", sched.ID).Str("name", sched.Name).
				Msg("skipping schedule with invalid configuration")
			continue
		}
		s.registry.Register(sched.ID, sched.NextRun)
	}

	s.log.Info().Int("schedules", s.registry.Active()).Msg("scheduler started")
	return nil
}

// Stop cancels all timers. In-flight runs finish on their own.
func (s *ReportService) Stop() {
	s.registry.Stop()
}

type CreateInput struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	ReportType  models.ReportType   `json:"report_type" binding:"required"`
	Parameters  map[string]string   `json:"parameters"`
	Frequency   models.Frequency    `json:"frequency" binding:"required"`
	Format      models.ExportFormat `json:"format" binding:"required"`
	Recipients  []string            `json:"recipients" binding:"required"`
	Active      *bool               `json:"active"`
}

func (s *ReportService) Create(input CreateInput, creator *models.User) (*models.ReportSchedule, error) {
	if err := validateEnums(input.Frequency, input.Format, input.Recipients); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	nextRun, err := s.resolver.Next(s.now(), input.Frequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	sched := &models.ReportSchedule{
		Name:        input.Name,
		Description: input.Description,
		ReportType:  input.ReportType,
		Parameters:  input.Parameters,
		Frequency:   input.Frequency,
		Format:      input.Format,
		Recipients:  input.Recipients,
		Active:      active,
		NextRun:     nextRun,
		CreatedBy:   creator.ID,
	}
	if err := s.db.Create(sched).Error; err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	if sched.Active {
		s.registry.Register(sched.ID, sched.NextRun)
	}

	s.log.Info().Uint("schedule_id", sched.ID).Str("name", sched.Name).
		Str("frequency", string(sched.Frequency)).Time("next_run", sched.NextRun).
		Msg("schedule created")
	return sched, nil
}

type UpdatePatch struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	ReportType  *models.ReportType   `json:"report_type"`
	Parameters  map[string]string    `json:"parameters"`
	Frequency   *models.Frequency    `json:"frequency"`
	Format      *models.ExportFormat `json:"format"`
	Recipients  []string             `json:"recipients"`
	Active      *bool                `json:"active"`
}

func (s *ReportService) Update(id uint, patch UpdatePatch, requester *models.User) (*models.ReportSchedule, error) {
	sched, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := authorize(sched, requester); err != nil {
		return nil, err
	}

	if patch.Frequency != nil && !patch.Frequency.Valid() {
		return nil, fmt.Errorf("%w: invalid frequency %q", ErrValidation, *patch.Frequency)
	}
	if patch.Format != nil && !patch.Format.Valid() {
		return nil, fmt.Errorf("%w: invalid format %q", ErrValidation, *patch.Format)
	}
	if patch.Recipients != nil && len(patch.Recipients) == 0 {
		return nil, fmt.Errorf("%w: recipients must not be empty", ErrValidation)
	}

	if patch.Name != nil {
		sched.Name = *patch.Name
	}
	if patch.Description != nil {
		sched.Description = *patch.Description
	}
	if patch.ReportType != nil {
		sched.ReportType = *patch.ReportType
	}
	if patch.Parameters != nil {
		sched.Parameters = patch.Parameters
	}
	if patch.Format != nil {
		sched.Format = *patch.Format
	}
	if patch.Recipients != nil {
		sched.Recipients = patch.Recipients
	}
	if patch.Active != nil {
		sched.Active = *patch.Active
	}
	if patch.Frequency != nil && *patch.Frequency != sched.Frequency {
		sched.Frequency = *patch.Frequency
		next, err := s.resolver.Next(s.now(), sched.Frequency)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		sched.NextRun = next
	}

	if err := s.db.Save(sched).Error; err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	// One reconciliation step covers activation, deactivation and frequency
	// changes alike: drop whatever timer exists, then arm one only if the
	// resulting row is active.
	s.registry.Cancel(sched.ID)
	if sched.Active {
		s.registry.Register(sched.ID, sched.NextRun)
	}

	s.log.Info().Uint("schedule_id", sched.ID).Bool("active", sched.Active).
		Time("next_run", sched.NextRun).Msg("schedule updated")
	return sched, nil
}

func (s *ReportService) Delete(id uint, requester *models.User) error {
	sched, err := s.load(id)
	if err != nil {
		return err
	}
	if err := authorize(sched, requester); err != nil {
		return err
	}

	// Execution history outlives the schedule; only the definition row goes.
	if err := s.db.Unscoped().Delete(&models.ReportSchedule{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	s.registry.Cancel(id)

	s.log.Info().Uint("schedule_id", id).Msg("schedule deleted")
	return nil
}

// ExecuteNow runs the pipeline synchronously for one schedule. Unlike a
// scheduled fire it never advances LastRun or NextRun, and a transport
// failure propagates to the caller on top of being ledgered.
func (s *ReportService) ExecuteNow(ctx context.Context, id uint, requester *models.User) (*pipeline.Outcome, error) {
	sched, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := authorize(sched, requester); err != nil {
		return nil, err
	}

	return s.pipeline.Run(ctx, sched, requester.Username)
}

type ListFilter struct {
	ReportType string
	Frequency  string
	Active     *bool
	Page       int
	Limit      int
}

func (s *ReportService) List(filter ListFilter, requester *models.User) ([]models.ReportSchedule, error) {
	query := s.db.Model(&models.ReportSchedule{})
	if !requester.IsAdmin() {
		query = query.Where("created_by = ?", requester.ID)
	}
	if filter.ReportType != "" {
		query = query.Where("report_type = ?", filter.ReportType)
	}
	if filter.Frequency != "" {
		query = query.Where("frequency = ?", filter.Frequency)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var schedules []models.ReportSchedule
	if err := query.Order("id asc").Offset((page - 1) * limit).Limit(limit).Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (s *ReportService) Get(id uint, requester *models.User) (*models.ReportSchedule, error) {
	sched, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := authorize(sched, requester); err != nil {
		return nil, err
	}
	return sched, nil
}

// fired handles one timer tick. It runs on the timer's goroutine, so slow
// pipelines never delay other schedules. A pipeline failure is already
// ledgered and logged by the pipeline; the schedule still advances to its
// next cadence instant — failures wait for the next natural fire, there is
// no retry loop.
func (s *ReportService) fired(id uint) {
	sched, err := s.load(id)
	if err != nil {
		s.log.Warn().Err(err).Uint("schedule_id", id).Msg("fired schedule no longer loadable")
		return
	}
	if !sched.Active {
		return
	}

	now := s.now()
	if _, err := s.pipeline.Run(context.Background(), sched, "scheduler"); err != nil {
		// Ledgered and escalated inside the pipeline. The cadence continues.
		s.log.Warn().Err(err).Uint("schedule_id", id).Msg("scheduled run failed")
	}

	next, err := s.resolver.Next(now, sched.Frequency)
	if err != nil {
		s.log.Error().Err(err).Uint("schedule_id", id).Msg("cannot compute next run; schedule disarmed")
		return
	}

	if err := s.db.Model(&models.ReportSchedule{}).Where("id = ?", id).
		Updates(map[string]any{"last_run": now, "next_run": next}).Error; err != nil {
		s.log.Error().Err(err).Uint("schedule_id", id).Msg("failed to advance schedule")
	}

	// The schedule may have been deactivated or deleted while the run was in
	// flight; re-arm only if it is still live.
	current, err := s.load(id)
	if err != nil || !current.Active {
		return
	}
	s.registry.Register(id, next)
}

func (s *ReportService) load(id uint) (*models.ReportSchedule, error) {
	var sched models.ReportSchedule
	if err := s.db.First(&sched, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	return &sched, nil
}

func authorize(sched *models.ReportSchedule, requester *models.User) error {
	if requester.IsAdmin() || sched.CreatedBy == requester.ID {
		return nil
	}
	return fmt.Errorf("%w: schedule %d belongs to another user", ErrForbidden, sched.ID)
}

func validateEnums(f models.Frequency, format models.ExportFormat, recipients []string) error {
	if !f.Valid() {
		return fmt.Errorf("%w: invalid frequency %q", ErrValidation, f)
	}
	if !format.Valid() {
		return fmt.Errorf("%w: invalid format %q", ErrValidation, format)
	}
	if len(recipients) == 0 {
		return fmt.Errorf("%w: recipients must not be empty", ErrValidation)
	}
	for _, r := range recipients {
		if !strings.Contains(r, "@") {
			return fmt.Errorf("%w: invalid recipient address %q", ErrValidation, r)
		}
	}
	return nil
}

func validateSchedule(sched *models.ReportSchedule) error {
	if err := validateEnums(sched.Frequency, sched.Format, sched.Recipients); err != nil {
		return err
	}
	if sched.NextRun.IsZero() {
		return fmt.Errorf("%w: next run is unset", ErrValidation)
	}
	return nil
}
