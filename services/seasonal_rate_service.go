package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"bungalow-backend/metrics"
	"bungalow-backend/models"
	"bungalow-backend/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RatePolicy decides which seasonal rate wins when several cover a day.
type RatePolicy string

const (
	RateLargestDiscount  RatePolicy = "largest_discount"
	RateSmallestDiscount RatePolicy = "smallest_discount"
	RateMostRecent       RatePolicy = "most_recent"
)

func ParseRatePolicy(raw string) (RatePolicy, error) {
	switch p := RatePolicy(raw); p {
	case RateLargestDiscount, RateSmallestDiscount, RateMostRecent:
		return p, nil
	case "":
		return RateLargestDiscount, nil
	}
	return "", fmt.Errorf("unknown rate policy %q", raw)
}

type SeasonalRateService struct {
	DB     *gorm.DB
	Policy RatePolicy
}

func NewSeasonalRateService(db *gorm.DB, policy RatePolicy) *SeasonalRateService {
	if policy == "" {
		policy = RateLargestDiscount
	}
	return &SeasonalRateService{DB: db, Policy: policy}
}

type RateInput struct {
	RoomID             uint
	StartDate          time.Time
	EndDate            time.Time
	DiscountPercentage float64
}

func (in RateInput) validate() error {
	if in.RoomID == 0 {
		return fmt.Errorf("%w: roomId is required", ErrValidation)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("%w: startDate and endDate are required", ErrValidation)
	}
	if utils.DateOf(in.EndDate).Before(utils.DateOf(in.StartDate)) {
		return fmt.Errorf("%w: endDate must not be before startDate", ErrValidation)
	}
	if in.DiscountPercentage < 0 || in.DiscountPercentage > 100 || math.IsNaN(in.DiscountPercentage) {
		return fmt.Errorf("%w: discountPercentage must be between 0 and 100", ErrValidation)
	}
	return nil
}

func (s *SeasonalRateService) ensureRoom(tx *gorm.DB, roomID uint) (models.Room, error) {
	var room models.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room, fmt.Errorf("%w: room %d", ErrNotFound, roomID)
		}
		return room, fmt.Errorf("failed to load room: %w", err)
	}
	return room, nil
}

func (s *SeasonalRateService) Create(in RateInput) (*models.SeasonalRate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.ensureRoom(s.DB, in.RoomID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown roomId %d", ErrValidation, in.RoomID)
		}
		return nil, err
	}

	rate := models.SeasonalRate{
		RoomID:             in.RoomID,
		StartDate:          datatypes.Date(utils.DateOf(in.StartDate)),
		EndDate:            datatypes.Date(utils.DateOf(in.EndDate)),
		DiscountPercentage: in.DiscountPercentage,
	}
	if err := s.DB.Create(&rate).Error; err != nil {
		return nil, fmt.Errorf("failed to create seasonal rate: %w", err)
	}
	return &rate, nil
}

func (s *SeasonalRateService) Get(id uint) (*models.SeasonalRate, error) {
	var rate models.SeasonalRate
	if err := s.DB.First(&rate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: seasonal rate %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load seasonal rate: %w", err)
	}
	return &rate, nil
}

func (s *SeasonalRateService) Update(id uint, in RateInput) (*models.SeasonalRate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var rate models.SeasonalRate
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rate, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: seasonal rate %d", ErrNotFound, id)
			}
			return err
		}
		if _, err := s.ensureRoom(tx, in.RoomID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: unknown roomId %d", ErrValidation, in.RoomID)
			}
			return err
		}
		rate.RoomID = in.RoomID
		rate.StartDate = datatypes.Date(utils.DateOf(in.StartDate))
		rate.EndDate = datatypes.Date(utils.DateOf(in.EndDate))
		rate.DiscountPercentage = in.DiscountPercentage
		return tx.Model(&rate).Updates(map[string]interface{}{
			"room_id":             rate.RoomID,
			"start_date":          rate.StartDate,
			"end_date":            rate.EndDate,
			"discount_percentage": rate.DiscountPercentage,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *SeasonalRateService) Delete(id uint) error {
	res := s.DB.Delete(&models.SeasonalRate{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete seasonal rate: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: seasonal rate %d", ErrNotFound, id)
	}
	return nil
}

func (s *SeasonalRateService) ListAll() ([]models.SeasonalRate, error) {
	rates := []models.SeasonalRate{}
	if err := s.DB.Order("room_id ASC, start_date ASC, id ASC").Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("failed to list seasonal rates: %w", err)
	}
	return rates, nil
}

func (s *SeasonalRateService) RatesForRoom(roomID uint) ([]models.SeasonalRate, error) {
	if _, err := s.ensureRoom(s.DB, roomID); err != nil {
		return nil, err
	}
	rates := []models.SeasonalRate{}
	if err := s.DB.Where("room_id = ?", roomID).Order("start_date ASC, id ASC").Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("failed to list seasonal rates: %w", err)
	}
	return rates, nil
}

// PriceQuote is the price of one night.
type PriceQuote struct {
	RoomID             uint    `json:"roomId"`
	Date               string  `json:"date"`
	BasePrice          float64 `json:"basePrice"`
	EffectivePrice     float64 `json:"effectivePrice"`
	DiscountPercentage float64 `json:"discountPercentage"`
	SeasonalRateID     *uint   `json:"seasonalRateId,omitempty"`
}

type StayQuote struct {
	RoomID       uint         `json:"roomId"`
	BungalowName string       `json:"bungalowName"`
	CheckInDate  string       `json:"checkInDate"`
	CheckOutDate string       `json:"checkOutDate"`
	Nights       []PriceQuote `json:"nights"`
	Total        float64      `json:"total"`
}

func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// SelectRate picks the authoritative rate among those covering day, or nil
// when none does.
func SelectRate(rates []models.SeasonalRate, day time.Time, policy RatePolicy) *models.SeasonalRate {
	covering := make([]models.SeasonalRate, 0, len(rates))
	for _, r := range rates {
		if r.Covers(day) {
			covering = append(covering, r)
		}
	}
	if len(covering) == 0 {
		return nil
	}

	// Ties resolve towards the newest record.
	sort.SliceStable(covering, func(i, j int) bool {
		a, b := covering[i], covering[j]
		switch policy {
		case RateSmallestDiscount:
			if a.DiscountPercentage != b.DiscountPercentage {
				return a.DiscountPercentage < b.DiscountPercentage
			}
		case RateMostRecent:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if a.DiscountPercentage != b.DiscountPercentage {
				return a.DiscountPercentage > b.DiscountPercentage
			}
		}
		return a.ID > b.ID
	})
	chosen := covering[0]
	return &chosen
}

// EffectivePrice applies the winning seasonal discount to the room's base
// price. Results are rounded to cents.
func EffectivePrice(room models.Room, rates []models.SeasonalRate, day time.Time, policy RatePolicy) PriceQuote {
	quote := PriceQuote{
		RoomID:         room.ID,
		Date:           utils.FormatDate(day),
		BasePrice:      room.Price,
		EffectivePrice: room.Price,
	}
	rate := SelectRate(rates, day, policy)
	if rate == nil {
		return quote
	}
	id := rate.ID
	quote.SeasonalRateID = &id
	quote.DiscountPercentage = rate.DiscountPercentage
	quote.EffectivePrice = roundPrice(room.Price * (1 - rate.DiscountPercentage/100))
	return quote
}

func priceSource(q PriceQuote) string {
	if q.SeasonalRateID != nil {
		return "seasonal"
	}
	return "base"
}

func (s *SeasonalRateService) EffectivePrice(roomID uint, day time.Time) (PriceQuote, error) {
	room, err := s.ensureRoom(s.DB, roomID)
	if err != nil {
		return PriceQuote{}, err
	}
	var rates []models.SeasonalRate
	d := datatypes.Date(utils.DateOf(day))
	if err := s.DB.Where("room_id = ? AND start_date <= ? AND end_date >= ?", roomID, d, d).Find(&rates).Error; err != nil {
		return PriceQuote{}, fmt.Errorf("failed to load seasonal rates: %w", err)
	}
	quote := EffectivePrice(room, rates, day, s.Policy)
	metrics.IncPriceLookup(priceSource(quote))
	return quote, nil
}

// Quote prices every night of a stay, from checkIn up to but excluding
// checkOut.
func (s *SeasonalRateService) Quote(roomID uint, checkIn, checkOut time.Time) (StayQuote, error) {
	checkIn, checkOut = utils.DateOf(checkIn), utils.DateOf(checkOut)
	if !checkOut.After(checkIn) {
		return StayQuote{}, fmt.Errorf("%w: checkOut must be after checkIn", ErrValidation)
	}
	room, err := s.ensureRoom(s.DB, roomID)
	if err != nil {
		return StayQuote{}, err
	}
	lastNight := checkOut.AddDate(0, 0, -1)

	var rates []models.SeasonalRate
	err = s.DB.Where("room_id = ? AND start_date <= ? AND end_date >= ?",
		roomID, datatypes.Date(lastNight), datatypes.Date(checkIn)).Find(&rates).Error
	if err != nil {
		return StayQuote{}, fmt.Errorf("failed to load seasonal rates: %w", err)
	}

	quote := StayQuote{
		RoomID:       room.ID,
		BungalowName: room.Name,
		CheckInDate:  utils.FormatDate(checkIn),
		CheckOutDate: utils.FormatDate(checkOut),
	}
	for _, night := range utils.DaysInRange(checkIn, lastNight) {
		p := EffectivePrice(room, rates, night, s.Policy)
		metrics.IncPriceLookup(priceSource(p))
		quote.Nights = append(quote.Nights, p)
		quote.Total += p.EffectivePrice
	}
	quote.Total = roundPrice(quote.Total)
	return quote, nil
}
