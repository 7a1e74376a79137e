package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"bungalow-backend/models"

	"gorm.io/gorm"
)

type RoomService struct {
	DB *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{DB: db}
}

type RoomInput struct {
	Name        string
	Description string
	Price       float64
	Capacity    int
	Status      string
}

// RoomPage mirrors the paged list shape the booking frontend consumes.
type RoomPage struct {
	Content       []models.Room `json:"content"`
	TotalElements int64         `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
	Number        int           `json:"number"`
	Size          int           `json:"size"`
}

var roomSortColumns = map[string]string{
	"id":       "id",
	"name":     "name",
	"price":    "price",
	"capacity": "capacity",
}

func (in RoomInput) toModel() (models.Room, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Room{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Price < 0 {
		return models.Room{}, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if in.Capacity < 0 {
		return models.Room{}, fmt.Errorf("%w: capacity must not be negative", ErrValidation)
	}
	status, err := models.ParseRoomStatus(in.Status)
	if err != nil {
		return models.Room{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return models.Room{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Capacity:    in.Capacity,
		Status:      status,
	}, nil
}

func (s *RoomService) Create(in RoomInput) (*models.Room, error) {
	room, err := in.toModel()
	if err != nil {
		return nil, err
	}
	if err := s.DB.Create(&room).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: room %q already exists", ErrConflict, room.Name)
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return &room, nil
}

func (s *RoomService) GetAll() ([]models.Room, error) {
	var rooms []models.Room
	err := s.DB.Order("id ASC").Find(&rooms).Error
	return rooms, err
}

// Page returns a zero-based page of rooms. sort is "column" or
// "column,desc"; unknown columns fall back to id.
func (s *RoomService) Page(page, size int, sort string) (RoomPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}

	order := "id ASC"
	if sort != "" {
		parts := strings.SplitN(sort, ",", 2)
		if col, ok := roomSortColumns[strings.ToLower(strings.TrimSpace(parts[0]))]; ok {
			dir := "ASC"
			if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[1]), "desc") {
				dir = "DESC"
			}
			order = col + " " + dir
		}
	}

	var total int64
	if err := s.DB.Model(&models.Room{}).Count(&total).Error; err != nil {
		return RoomPage{}, fmt.Errorf("failed to count rooms: %w", err)
	}

	rooms := []models.Room{}
	if err := s.DB.Order(order).Offset(page * size).Limit(size).Find(&rooms).Error; err != nil {
		return RoomPage{}, fmt.Errorf("failed to list rooms: %w", err)
	}

	return RoomPage{
		Content:       rooms,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(size))),
		Number:        page,
		Size:          size,
	}, nil
}

func (s *RoomService) GetByID(id uint) (models.Room, error) {
	var room models.Room
	if err := s.DB.First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room, fmt.Errorf("%w: room %d", ErrNotFound, id)
		}
		return room, fmt.Errorf("failed to load room: %w", err)
	}
	return room, nil
}

// FindByName matches the display name case-insensitively.
func (s *RoomService) FindByName(name string) (models.Room, error) {
	var room models.Room
	name = strings.TrimSpace(name)
	if name == "" {
		return room, fmt.Errorf("%w: bungalow name is required", ErrValidation)
	}
	if err := s.DB.Where("LOWER(name) = ?", strings.ToLower(name)).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room, fmt.Errorf("%w: bungalow %q", ErrNotFound, name)
		}
		return room, fmt.Errorf("failed to load room: %w", err)
	}
	return room, nil
}

func (s *RoomService) Update(id uint, in RoomInput) (*models.Room, error) {
	next, err := in.toModel()
	if err != nil {
		return nil, err
	}
	room, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	err = s.DB.Model(&room).Updates(map[string]interface{}{
		"name":        next.Name,
		"description": next.Description,
		"price":       next.Price,
		"capacity":    next.Capacity,
		"status":      next.Status,
	}).Error
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: room %q already exists", ErrConflict, next.Name)
		}
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	room, err = s.GetByID(id)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Delete removes a room together with its seasonal rates.
func (s *RoomService) Delete(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&models.SeasonalRate{}).Error; err != nil {
			return fmt.Errorf("failed to delete seasonal rates of room %d: %w", id, err)
		}
		res := tx.Delete(&models.Room{}, id)
		if res.Error != nil {
			if isForeignKeyViolation(res.Error) {
				return fmt.Errorf("%w: room %d is still referenced", ErrConflict, id)
			}
			return fmt.Errorf("failed to delete room: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: room %d", ErrNotFound, id)
		}
		return nil
	})
}
