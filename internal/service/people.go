package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam-proctor/internal/repository"
)

// nameBook 单次请求内的人员姓名缓存，查询失败只记日志
type nameBook struct {
	repo   repository.PersonRepository
	logger *zap.Logger
	names  map[int64]string
}

func newNameBook(repo repository.PersonRepository, logger *zap.Logger) *nameBook {
	return &nameBook{repo: repo, logger: logger, names: make(map[int64]string)}
}

// preload 批量加载姓名
func (b *nameBook) preload(ctx context.Context, ids []int64) {
	missing := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := b.names[id]; ok || seen[id] || id <= 0 {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return
	}
	people, err := b.repo.ListByIDs(ctx, missing)
	if err != nil {
		b.logger.Warn("批量查询人员失败", zap.Int("count", len(missing)), zap.Error(err))
		return
	}
	for i := range people {
		b.names[people[i].UserID] = people[i].DisplayName()
	}
}

// name 返回显示名，查不到时为空串
func (b *nameBook) name(ctx context.Context, id int64) string {
	if n, ok := b.names[id]; ok {
		return n
	}
	p, err := b.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			b.logger.Warn("查询人员失败", zap.Int64("user_id", id), zap.Error(err))
		}
		b.names[id] = ""
		return ""
	}
	b.names[id] = p.DisplayName()
	return b.names[id]
}

// label 看板展示名，查不到姓名时退回编号
func (b *nameBook) label(ctx context.Context, id int64) string {
	if n := b.name(ctx, id); n != "" {
		return n
	}
	return fmt.Sprintf("#%d", id)
}

// joined 多人姓名以逗号连接，跳过查不到的
func (b *nameBook) joined(ctx context.Context, ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := b.name(ctx, id); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, ", ")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
