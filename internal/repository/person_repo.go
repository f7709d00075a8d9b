package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-proctor/internal/model"
)

// PersonRepository 用户只读访问接口
type PersonRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Person, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Person, error)
}

type personRepo struct {
	db *gorm.DB
}

// NewPersonRepo 创建 PersonRepository 实例
func NewPersonRepo(db *gorm.DB) PersonRepository {
	return &personRepo{db: db}
}

func (r *personRepo) GetByID(ctx context.Context, id int64) (*model.Person, error) {
	var p model.Person
	err := r.db.WithContext(ctx).
		Select("user_id", "first_name", "last_name").
		Where("user_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Person, error) {
	var list []model.Person
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Select("user_id", "first_name", "last_name").
		Where("user_id IN ?", ids).
		Find(&list).Error
	return list, err
}
