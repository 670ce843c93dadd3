// Package service holds the student use cases that sit between the HTTP
// handlers and storage.
package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// StudentService exposes the student CRUD workflow.
type StudentService interface {
	Create(ctx context.Context, input types.StudentPatch) (types.Student, error)
	List(ctx context.Context) ([]types.Student, error)
	// Get reports false when no student has the id.
	Get(ctx context.Context, id uint) (types.Student, bool, error)
	// Update merges the non-nil fields of patch into the stored student.
	// It reports false, and writes nothing, when no student has the id.
	Update(ctx context.Context, id uint, patch types.StudentPatch) (types.Student, bool, error)
	// Delete removes the student if it exists.
	Delete(ctx context.Context, id uint) error
}

type studentService struct {
	store  storage.Storage
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewStudentService constructs the student service.
func NewStudentService(store storage.Storage, logger zerolog.Logger) StudentService {
	return &studentService{
		store:  store,
		logger: logger.With().Str("component", "student_service").Logger(),
		tracer: otel.Tracer("github.com/aanand-mishra/student-records/internal/service/student"),
	}
}

func (s *studentService) Create(ctx context.Context, input types.StudentPatch) (types.Student, error) {
	ctx, span := s.tracer.Start(ctx, "student.create")
	defer span.End()

	student := input.Student()
	if err := s.store.Save(ctx, &student); err != nil {
		recordError(span, err)
		return types.Student{}, err
	}

	span.SetAttributes(attribute.Int64("student.id", int64(student.ID)))
	s.logger.Debug().Uint("student_id", student.ID).Msg("student created")
	return student, nil
}

func (s *studentService) List(ctx context.Context) ([]types.Student, error) {
	ctx, span := s.tracer.Start(ctx, "student.list")
	defer span.End()

	students, err := s.store.FindAll(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("student.count", len(students)))
	return students, nil
}

func (s *studentService) Get(ctx context.Context, id uint) (types.Student, bool, error) {
	ctx, span := s.tracer.Start(ctx, "student.get", trace.WithAttributes(attribute.Int64("student.id", int64(id))))
	defer span.End()

	student, found, err := s.store.FindByID(ctx, id)
	if err != nil {
		recordError(span, err)
		return types.Student{}, false, err
	}

	return student, found, nil
}

// Update looks the student up, merges the patch and saves it inside one
// transaction. A student deleted between the lookup and the save is
// reported as not found; it is never re-created.
func (s *studentService) Update(ctx context.Context, id uint, patch types.StudentPatch) (types.Student, bool, error) {
	ctx, span := s.tracer.Start(ctx, "student.update", trace.WithAttributes(attribute.Int64("student.id", int64(id))))
	defer span.End()

	var updated types.Student
	found := false
	err := s.store.Transaction(ctx, func(tx storage.Storage) error {
		student, ok, err := tx.FindByID(ctx, id)
		if err != nil || !ok {
			return err
		}

		patch.ApplyTo(&student)
		err = tx.Save(ctx, &student)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		updated, found = student, true
		return nil
	})
	if err != nil {
		recordError(span, err)
		return types.Student{}, false, err
	}
	if !found {
		span.SetAttributes(attribute.Bool("student.found", false))
		s.logger.Debug().Uint("student_id", id).Msg("update skipped, student not found")
		return types.Student{}, false, nil
	}

	s.logger.Debug().Uint("student_id", id).Msg("student updated")
	return updated, true, nil
}

func (s *studentService) Delete(ctx context.Context, id uint) error {
	ctx, span := s.tracer.Start(ctx, "student.delete", trace.WithAttributes(attribute.Int64("student.id", int64(id))))
	defer span.End()

	if err := s.store.DeleteByID(ctx, id); err != nil {
		recordError(span, err)
		return err
	}

	s.logger.Debug().Uint("student_id", id).Msg("student deleted")
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
