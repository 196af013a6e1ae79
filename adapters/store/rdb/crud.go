package rdb

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// crud maps a domain model M onto a GORM record R.
type crud[M any, R any] struct {
	db       *gorm.DB
	prefix   string
	notFound error
	order    string
	id       func(*M) *string
	toRecord func(*M) *R
	toModel  func(*R) *M
}

func (c *crud[M, R]) Create(ctx context.Context, m *M) error {
	if id := c.id(m); *id == "" {
		*id = c.prefix + "-" + uuid.NewString()
	}
	return c.db.WithContext(ctx).Create(c.toRecord(m)).Error
}

func (c *crud[M, R]) Get(ctx context.Context, id string) (*M, error) {
	var rec R
	if err := c.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.notFound
		}
		return nil, err
	}
	return c.toModel(&rec), nil
}

func (c *crud[M, R]) List(ctx context.Context) ([]*M, error) {
	var recs []R
	if err := c.db.WithContext(ctx).Order(c.order).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*M, 0, len(recs))
	for i := range recs {
		out = append(out, c.toModel(&recs[i]))
	}
	return out, nil
}

func (c *crud[M, R]) Update(ctx context.Context, m *M) error {
	res := c.db.WithContext(ctx).Model(new(R)).Where("id = ?", *c.id(m)).Select("*").Updates(c.toRecord(m))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return c.notFound
	}
	return nil
}

func (c *crud[M, R]) Delete(ctx context.Context, id string) error {
	res := c.db.WithContext(ctx).Delete(new(R), "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return c.notFound
	}
	return nil
}
