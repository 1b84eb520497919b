package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/novabiz/paydesk/internal/serviceticket/domain"
	"github.com/novabiz/paydesk/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, ticket *domain.ServiceTicket) error {
	return conn.WithContext(ctx).Create(ticket).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.ServiceTicket, error) {
	var ticket domain.ServiceTicket
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.ServiceTicket, error) {
	var ticket domain.ServiceTicket
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repo) UpdateBalances(ctx context.Context, tx *gorm.DB, ticket *domain.ServiceTicket) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE service_tickets
		 SET total_advance_paid = ?,
		     total_refund_given = ?,
		     updated_at = ?
		 WHERE id = ?`,
		ticket.TotalAdvancePaid,
		ticket.TotalRefundGiven,
		time.Now().UTC(),
		ticket.ID,
	).Error
}

func (r *repo) UpdateCosts(ctx context.Context, tx *gorm.DB, ticket *domain.ServiceTicket) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE service_tickets
		 SET parts_cost = ?,
		     external_parts = ?,
		     updated_at = ?
		 WHERE id = ?`,
		ticket.PartsCost,
		ticket.ExternalParts,
		time.Now().UTC(),
		ticket.ID,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, tx *gorm.DB, ticket *domain.ServiceTicket) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE service_tickets
		 SET status = ?,
		     completed_at = ?,
		     updated_at = ?
		 WHERE id = ?`,
		ticket.Status,
		ticket.CompletedAt,
		time.Now().UTC(),
		ticket.ID,
	).Error
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, status domain.Status, limit int) ([]*domain.ServiceTicket, error) {
	stmt := conn.WithContext(ctx).Model(&domain.ServiceTicket{})
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 50
	}

	var tickets []*domain.ServiceTicket
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
