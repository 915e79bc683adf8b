package repository

import (
	"context"
	"time"

	"foodDeliveryPlatform/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLocation(ctx context.Context, id int64, lat, lng float64) error
}

// OrderRepositoryI defines operations on Order aggregates.
type OrderRepositoryI interface {
	CreateWithItems(ctx context.Context, o *models.Order, firstNote string) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByCustomerPage(ctx context.Context, customerID int64, pageSize int, afterSeconds, afterID int64) ([]models.Order, error)
	ListUnassignedConfirmed(ctx context.Context, agentID int64) ([]models.Order, error)
	ListOutForDeliveryByAgent(ctx context.Context, agentID int64) ([]models.Order, error)
	AppendHistory(ctx context.Context, orderID int64, status models.OrderStatus, note string, lat, lng *float64) error
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error
	AssignAgent(ctx context.Context, orderID, agentID int64, eta time.Time) (bool, error)
	AssignAgentAdmin(ctx context.Context, orderID, agentID int64, eta time.Time) (bool, error)
	CompleteDelivery(ctx context.Context, orderID, agentID int64) (bool, error)
	CompletePickup(ctx context.Context, orderID int64) (bool, error)
	CancelAndRestock(ctx context.Context, orderID int64) (bool, error)
}

// AgentRepositoryI defines operations on DeliveryAgent aggregates.
type AgentRepositoryI interface {
	Create(ctx context.Context, a *models.DeliveryAgent) (*models.DeliveryAgent, error)
	GetByID(ctx context.Context, id int64) (*models.DeliveryAgent, error)
	GetByUserID(ctx context.Context, userID int64) (*models.DeliveryAgent, error)
	SetAvailability(ctx context.Context, id int64, available bool) error
	UpdateLocation(ctx context.Context, id int64, lat, lng float64) error
	SetVerified(ctx context.Context, id int64, verified bool) error
	AddRejected(ctx context.Context, agentID, orderID int64) error
	RejectedOrderIDs(ctx context.Context, agentID int64) ([]int64, error)
	AddActive(ctx context.Context, agentID, orderID int64) error
	RemoveActive(ctx context.Context, agentID, orderID int64) error
	ActiveOrderIDs(ctx context.Context, agentID int64) ([]int64, error)
	MoveActiveToHistory(ctx context.Context, agentID, orderID int64) error
	DeliveryHistoryOrderIDs(ctx context.Context, agentID int64) ([]int64, error)
	AddRating(ctx context.Context, agentID int64, rating float64) error
}

// ProductRepositoryI defines operations on Product entities.
type ProductRepositoryI interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	RestoreStock(ctx context.Context, id int64, quantity int) error
	AuthorIDsForOrder(ctx context.Context, orderID int64) ([]int64, error)
	IsOrderItemAuthor(ctx context.Context, orderID, userID int64) (bool, error)
	FirstItemAuthorLocation(ctx context.Context, orderID int64) (lat, lng float64, ok bool, err error)
}

// NotificationRepositoryI defines operations on Notification records.
type NotificationRepositoryI interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ListByRecipient(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID int64) error
}
