package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Role classifies a user for capability checks.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account in the system.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	Role         Role
	IsGuest      bool
	SessionID    string // guest session tracking
	CreatedAt    time.Time
}

// Room is a named channel grouping messages and subscribers.
type Room struct {
	ID          int64
	Name        string
	Description string
	OwnerID     *int64
	CreatedAt   time.Time
}

// RoomSummary is a room plus its member count, for listings.
type RoomSummary struct {
	Room
	MemberCount int
}

// Message is a persisted chat message. AuthorName and AuthorAvatar
// are resolved from the users table on read; they are not stored.
type Message struct {
	ID           int64
	RoomID       int64
	UserID       int64
	Body         string
	CreatedAt    time.Time
	AuthorName   string
	AuthorAvatar string
}

// Task belongs to exactly one user.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
}

// Category groups products.
type Category struct {
	ID   int64
	Name string
}

// Product is a catalog entry. Price is in cents.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       int64
	Stock       int
	ImageURL    string
	CategoryID  int64
	Category    *Category
}

// CartItem is one product line in a user's cart.
type CartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int
	Product   *Product
}

// Cart holds a user's pending items.
type Cart struct {
	ID     int64
	UserID int64
	Items  []*CartItem
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, displayName, passwordHash string, role Role) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers lists all users ordered by ID.
	ListUsers(ctx context.Context) ([]*User, error)

	// DeleteUser removes a user by ID.
	DeleteUser(ctx context.Context, id int64) error
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a room and adds the owner as its first member.
	CreateRoom(ctx context.Context, name, description string, ownerID int64) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// ListRooms lists all rooms with member counts.
	ListRooms(ctx context.Context) ([]*RoomSummary, error)

	// AddMember adds a user to a room. Adding an existing member is a no-op.
	AddMember(ctx context.Context, roomID, userID int64) error

	// IsMember reports whether the user belongs to the room.
	IsMember(ctx context.Context, roomID, userID int64) (bool, error)
}

// MessageStore handles message persistence. Messages are append-only;
// the store assigns the identifier and creation timestamp.
type MessageStore interface {
	// CreateMessage persists a message and returns it with the
	// assigned ID, timestamp, and resolved author display fields.
	CreateMessage(ctx context.Context, roomID, userID int64, body string) (*Message, error)

	// ListMessages returns the room's messages ordered by
	// (created_at, id) ascending. limit <= 0 returns everything.
	ListMessages(ctx context.Context, roomID int64, limit int) ([]*Message, error)
}

// TaskStore handles task persistence.
type TaskStore interface {
	// CreateTask creates a task owned by the given user.
	CreateTask(ctx context.Context, userID int64, title, description string) (*Task, error)

	// ListTasks lists the user's tasks, newest first.
	ListTasks(ctx context.Context, userID int64) ([]*Task, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, id int64) (*Task, error)

	// SetTaskCompleted flips the completed flag and returns the task.
	SetTaskCompleted(ctx context.Context, id int64, completed bool) (*Task, error)

	// DeleteTask removes a task by ID.
	DeleteTask(ctx context.Context, id int64) error
}

// CatalogStore handles category and product persistence.
type CatalogStore interface {
	// CreateCategory creates a category.
	CreateCategory(ctx context.Context, name string) (*Category, error)

	// ListCategories lists categories ordered by name.
	ListCategories(ctx context.Context) ([]*Category, error)

	// CreateProduct creates a product and returns it with its ID.
	CreateProduct(ctx context.Context, p *Product) (*Product, error)

	// GetProduct retrieves a product with its category.
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// ListProducts lists products with categories, ordered by name.
	ListProducts(ctx context.Context) ([]*Product, error)

	// UpdateProduct overwrites a product's mutable fields.
	UpdateProduct(ctx context.Context, p *Product) (*Product, error)

	// DeleteProduct removes a product by ID.
	DeleteProduct(ctx context.Context, id int64) error
}

// CartStore handles per-user cart persistence.
type CartStore interface {
	// GetOrCreateCart returns the user's cart with items, creating it
	// on first use.
	GetOrCreateCart(ctx context.Context, userID int64) (*Cart, error)

	// AddCartItem adds a product to the user's cart, merging with an
	// existing line for the same product.
	AddCartItem(ctx context.Context, userID, productID int64, quantity int) (*CartItem, error)

	// UpdateCartItemQuantity sets the quantity of a cart line.
	UpdateCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (*CartItem, error)

	// RemoveCartItem deletes a cart line.
	RemoveCartItem(ctx context.Context, userID, itemID int64) error

	// ClearCart removes every line from the user's cart.
	ClearCart(ctx context.Context, userID int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	TaskStore
	CatalogStore
	CartStore

	// Close closes the underlying database connection.
	Close() error
}
