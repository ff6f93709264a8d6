package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/models"
)

// TraineeRepository reads trainees and their supervisor assignments.
type TraineeRepository interface {
	GetByID(ctx context.Context, id uint) (models.Trainee, error)
	GetByUserID(ctx context.Context, userID uint) (models.Trainee, error)
	Create(ctx context.Context, trainee *models.Trainee) error
	AcceptedSupervisors(ctx context.Context, traineeID uint) ([]models.SupervisorAssignment, error)
	CreateAssignment(ctx context.Context, assignment *models.SupervisorAssignment) error
}

type traineeRepository struct {
	db *gorm.DB
}

// NewTraineeRepository constructs the trainee repository.
func NewTraineeRepository(db *gorm.DB) TraineeRepository {
	return &traineeRepository{db: db}
}

func (r *traineeRepository) GetByID(ctx context.Context, id uint) (models.Trainee, error) {
	var trainee models.Trainee
	err := r.db.WithContext(ctx).First(&trainee, id).Error
	return trainee, err
}

func (r *traineeRepository) GetByUserID(ctx context.Context, userID uint) (models.Trainee, error) {
	var trainee models.Trainee
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&trainee).Error
	return trainee, err
}

func (r *traineeRepository) Create(ctx context.Context, trainee *models.Trainee) error {
	return r.db.WithContext(ctx).Create(trainee).Error
}

func (r *traineeRepository) AcceptedSupervisors(ctx context.Context, traineeID uint) ([]models.SupervisorAssignment, error) {
	var assignments []models.SupervisorAssignment
	err := r.db.WithContext(ctx).
		Where("trainee_id = ? AND accepted = ?", traineeID, true).
		Order("CASE WHEN role = 'principal' THEN 0 ELSE 1 END, id ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *traineeRepository) CreateAssignment(ctx context.Context, assignment *models.SupervisorAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}
