package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bungalow-backend/metrics"
	"bungalow-backend/models"
	"bungalow-backend/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationService owns the reservation store and its transition engine.
type ReservationService struct {
	DB     *gorm.DB
	Rooms  *RoomService
	Events EventPublisher
	Cache  CalendarCache

	// PreventDoubleBooking rejects approve when another CONFIRMED stay of
	// the same bungalow overlaps.
	PreventDoubleBooking bool

	Now func() time.Time
	// Location is the business time zone used to decide today's date.
	Location *time.Location
}

func NewReservationService(db *gorm.DB, rooms *RoomService) *ReservationService {
	return &ReservationService{
		DB:                   db,
		Rooms:                rooms,
		Events:               NoopPublisher{},
		Cache:                NoopCalendarCache{},
		PreventDoubleBooking: true,
		Now:                  time.Now,
		Location:             time.UTC,
	}
}

func (s *ReservationService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Today is the current calendar date as seen by the service clock.
func (s *ReservationService) Today() time.Time {
	return utils.Today(s.now(), s.Location)
}

type CreateReservationInput struct {
	BungalowID    uint
	BungalowName  string
	CheckInDate   time.Time
	CheckOutDate  time.Time
	CustomerID    uint
	CustomerEmail string
	CustomerName  string
}

// TransitionRequest addresses one reservation. ExpectedVersion, when set,
// must match the stored version or the change fails with ErrConflict.
type TransitionRequest struct {
	ID              uint
	ExpectedVersion *uint
	Actor           string
}

const (
	FilterUpcoming = "upcoming"
	FilterPast     = "past"
	FilterAll      = "all"
)

func newReferenceCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BK-" + strings.ToUpper(raw[:10])
}

func (s *ReservationService) resolveBungalow(in CreateReservationInput) (models.Room, error) {
	var (
		room models.Room
		err  error
	)
	if in.BungalowID != 0 {
		room, err = s.Rooms.GetByID(in.BungalowID)
	} else {
		room, err = s.Rooms.FindByName(in.BungalowName)
	}
	if errors.Is(err, ErrNotFound) {
		return room, fmt.Errorf("%w: unknown bungalow", ErrValidation)
	}
	return room, err
}

func (s *ReservationService) Create(in CreateReservationInput) (*models.Reservation, error) {
	email, err := normalizeEmail(in.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if in.CheckInDate.IsZero() || in.CheckOutDate.IsZero() {
		return nil, fmt.Errorf("%w: checkInDate and checkOutDate are required", ErrValidation)
	}
	checkIn, checkOut := utils.DateOf(in.CheckInDate), utils.DateOf(in.CheckOutDate)
	if !checkOut.After(checkIn) {
		return nil, fmt.Errorf("%w: checkOutDate must be after checkInDate", ErrValidation)
	}

	room, err := s.resolveBungalow(in)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"checkInDate":  utils.FormatDate(checkIn),
		"checkOutDate": utils.FormatDate(checkOut),
		"bungalowName": room.Name,
	})

	var reservation models.Reservation
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		reservation = models.Reservation{
			ReferenceCode: newReferenceCode(),
			BungalowID:    room.ID,
			BungalowName:  room.Name,
			CustomerID:    in.CustomerID,
			CustomerEmail: email,
			CustomerName:  strings.TrimSpace(in.CustomerName),
			CheckInDate:   datatypes.Date(checkIn),
			CheckOutDate:  datatypes.Date(checkOut),
			Status:        models.ReservationPending,
			PaymentStatus: models.PaymentPending,
			Version:       1,
		}

		err = s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&reservation).Error; err != nil {
				return err
			}
			return tx.Create(&models.ReservationEvent{
				ReservationID: reservation.ID,
				Action:        models.ActionCreate,
				Actor:         reservation.CustomerEmail,
				ToStatus:      reservation.Status,
				ToPayment:     reservation.PaymentStatus,
				Version:       reservation.Version,
				Payload:       datatypes.JSON(payload),
			}).Error
		})
		if err == nil || !isDuplicateKey(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	metrics.IncReservationCreated()
	s.afterCommit(models.ActionCreate, reservation.CustomerEmail, reservation)
	return &reservation, nil
}

func (s *ReservationService) GetByID(id uint) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.DB.First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	return &r, nil
}

// ListForCustomer returns the customer's reservations. "upcoming" keeps stays
// starting today or later, "past" keeps stays that ended before today.
func (s *ReservationService) ListForCustomer(email, filter string) ([]models.Reservation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	q := s.DB.Where("customer_email = ?", email)
	today := datatypes.Date(s.Today())

	switch strings.ToLower(strings.TrimSpace(filter)) {
	case FilterUpcoming:
		q = q.Where("check_in_date >= ?", today).Order("check_in_date ASC")
	case FilterPast:
		q = q.Where("check_out_date < ?", today).Order("check_in_date DESC")
	case FilterAll, "":
		q = q.Order("check_in_date DESC")
	default:
		return nil, fmt.Errorf("%w: filter must be one of upcoming, past, all", ErrValidation)
	}

	reservations := []models.Reservation{}
	if err := q.Order("id ASC").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// ListAll is the staff listing. status may be empty; page is 1-based.
func (s *ReservationService) ListAll(status string, page, perPage int) ([]models.Reservation, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 200 {
		perPage = 200
	}

	var st models.ReservationStatus
	if strings.TrimSpace(status) != "" {
		parsed, err := models.ParseReservationStatus(status)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		st = parsed
	}
	scoped := func() *gorm.DB {
		q := s.DB.Model(&models.Reservation{})
		if st != "" {
			q = q.Where("status = ?", st)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	reservations := []models.Reservation{}
	if err := scoped().Order("id DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&reservations).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, total, nil
}

// ListInRange returns reservations occupying at least one day of
// [start, end]. bungalowID 0 means every bungalow.
func (s *ReservationService) ListInRange(start, end time.Time, bungalowID uint) ([]models.Reservation, error) {
	q := s.DB.Where("check_in_date <= ? AND check_out_date >= ?",
		datatypes.Date(utils.DateOf(end)), datatypes.Date(utils.DateOf(start)))
	if bungalowID != 0 {
		q = q.Where("bungalow_id = ?", bungalowID)
	}
	reservations := []models.Reservation{}
	if err := q.Order("check_in_date ASC, id ASC").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to load reservations in range: %w", err)
	}
	return reservations, nil
}

func (s *ReservationService) ListEvents(id uint) ([]models.ReservationEvent, error) {
	if _, err := s.GetByID(id); err != nil {
		return nil, err
	}
	events := []models.ReservationEvent{}
	if err := s.DB.Where("reservation_id = ?", id).Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load reservation events: %w", err)
	}
	return events, nil
}

func (s *ReservationService) Approve(req TransitionRequest) (*models.Reservation, error) {
	return s.apply(req, models.ActionApprove, s.changeStatus(models.ActionApprove))
}

func (s *ReservationService) Cancel(req TransitionRequest) (*models.Reservation, error) {
	return s.apply(req, models.ActionCancel, s.changeStatus(models.ActionCancel))
}

// Complete closes a CONFIRMED stay. It is driven by the completion batch,
// not by staff.
func (s *ReservationService) Complete(req TransitionRequest) (*models.Reservation, error) {
	return s.apply(req, models.ActionComplete, s.changeStatus(models.ActionComplete))
}

func (s *ReservationService) MarkPaid(req TransitionRequest) (*models.Reservation, error) {
	return s.apply(req, models.ActionMarkPaid, changePayment(models.PaymentPaid))
}

func (s *ReservationService) MarkUnpaid(req TransitionRequest) (*models.Reservation, error) {
	return s.apply(req, models.ActionMarkUnpaid, changePayment(models.PaymentUnpaid))
}

// mutation edits r in place and reports whether anything changed.
type mutation func(tx *gorm.DB, r *models.Reservation) (bool, error)

func (s *ReservationService) changeStatus(action models.ReservationAction) mutation {
	return func(tx *gorm.DB, r *models.Reservation) (bool, error) {
		next, ok := r.Status.NextStatus(action)
		if !ok {
			return false, fmt.Errorf("%w: cannot %s a %s reservation", ErrInvalidTransition, action, r.Status)
		}
		if action == models.ActionApprove && s.PreventDoubleBooking {
			if err := checkNoConfirmedOverlap(tx, r); err != nil {
				return false, err
			}
		}
		r.Status = next
		return true, nil
	}
}

func changePayment(target models.PaymentStatus) mutation {
	return func(_ *gorm.DB, r *models.Reservation) (bool, error) {
		if r.PaymentStatus == target {
			return false, nil
		}
		r.PaymentStatus = target
		return true, nil
	}
}

// checkNoConfirmedOverlap uses half-open stays so a checkout and a check-in
// on the same day do not collide. The bungalow row is locked before the
// overlap read, so approvals of different reservations for one bungalow
// are serialized.
func checkNoConfirmedOverlap(tx *gorm.DB, r *models.Reservation) error {
	var room models.Room
	err := tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&room, r.BungalowID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to lock bungalow %d: %w", r.BungalowID, err)
	}

	var clash models.Reservation
	err = tx.
		Where("bungalow_id = ? AND status = ? AND id <> ?", r.BungalowID, models.ReservationConfirmed, r.ID).
		Where("check_in_date < ? AND check_out_date > ?", r.CheckOutDate, r.CheckInDate).
		Order("check_in_date ASC").
		First(&clash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check overlapping reservations: %w", err)
	}
	return fmt.Errorf("%w: overlaps %s (%s to %s)", ErrDoubleBooking,
		clash.ReferenceCode, utils.FormatDate(clash.CheckIn()), utils.FormatDate(clash.CheckOut()))
}

// apply runs one transition in a transaction: lock the row, check the
// caller's version, mutate, then compare-and-swap on the stored version.
func (s *ReservationService) apply(req TransitionRequest, action models.ReservationAction, mutate mutation) (*models.Reservation, error) {
	var (
		result  models.Reservation
		changed bool
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var r models.Reservation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, req.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: reservation %d", ErrNotFound, req.ID)
			}
			return fmt.Errorf("failed to load reservation: %w", err)
		}
		if req.ExpectedVersion != nil && *req.ExpectedVersion != r.Version {
			return fmt.Errorf("%w: reservation %d is at version %d, not %d", ErrConflict, r.ID, r.Version, *req.ExpectedVersion)
		}

		before := r
		var err error
		changed, err = mutate(tx, &r)
		if err != nil {
			return err
		}
		if !changed {
			result = r
			return nil
		}

		r.Version = before.Version + 1
		r.UpdatedAt = s.now().UTC()
		res := tx.Model(&models.Reservation{}).
			Where("id = ? AND version = ?", r.ID, before.Version).
			Updates(map[string]interface{}{
				"status":         r.Status,
				"payment_status": r.PaymentStatus,
				"version":        r.Version,
				"updated_at":     r.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update reservation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: reservation %d changed concurrently", ErrConflict, r.ID)
		}

		event := models.ReservationEvent{
			ReservationID: r.ID,
			Action:        action,
			Actor:         req.Actor,
			FromStatus:    before.Status,
			ToStatus:      r.Status,
			FromPayment:   before.PaymentStatus,
			ToPayment:     r.PaymentStatus,
			Version:       r.Version,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to record reservation event: %w", err)
		}

		result = r
		return nil
	})
	if err != nil {
		metrics.IncTransition(string(action), ErrorCode(err))
		return nil, err
	}

	if !changed {
		metrics.IncTransition(string(action), "noop")
		return &result, nil
	}
	metrics.IncTransition(string(action), "applied")
	s.afterCommit(action, req.Actor, result)
	return &result, nil
}

func (s *ReservationService) afterCommit(action models.ReservationAction, actor string, r models.Reservation) {
	if s.Cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		s.Cache.Invalidate(ctx)
		cancel()
	}
	publishAfterCommit(s.Events, ReservationChanged{
		ReservationID: r.ID,
		ReferenceCode: r.ReferenceCode,
		BungalowID:    r.BungalowID,
		Action:        action,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		Version:       r.Version,
		Actor:         actor,
		OccurredAt:    s.now().UTC(),
	})
}

// CompleteElapsed marks every CONFIRMED reservation whose check-out date is
// before today as COMPLETED. Rows that changed concurrently are skipped.
func (s *ReservationService) CompleteElapsed(ctx context.Context, today time.Time) (int, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&models.Reservation{}).
		Where("status = ? AND check_out_date < ?", models.ReservationConfirmed, datatypes.Date(utils.DateOf(today))).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find elapsed reservations: %w", err)
	}

	completed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		_, err := s.Complete(TransitionRequest{ID: id, Actor: "system:completer"})
		switch {
		case err == nil:
			completed++
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
			log.Printf("skip completing reservation %d: %v", id, err)
		default:
			return completed, err
		}
	}
	return completed, nil
}
