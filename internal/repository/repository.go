package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// Repository owns every query the storefront runs. One value serves the
// catalog, cart, order and outbox interfaces below.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

type CatalogRepository interface {
	ListCategories(ctx context.Context, limit int) ([]domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	DeleteCategory(ctx context.Context, slug string) error

	ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)
	CountProducts(ctx context.Context, q domain.ProductQuery) (int, error)
	ListFeaturedProducts(ctx context.Context, limit int) ([]domain.Product, error)
	ListRelatedProducts(ctx context.Context, categoryID, excludeID int64, limit int) ([]domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
}

type CartRepository interface {
	GetOrCreateCart(ctx context.Context, owner domain.Identity) (*domain.Cart, error)
	GetCart(ctx context.Context, id int64) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID int64, quantity int) error
	SetItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID int64) error
	GetItem(ctx context.Context, cartID, itemID int64) (*domain.CartItem, error)
	ListItems(ctx context.Context, cartID int64) ([]domain.CartItem, error)
}

type OrderRepository interface {
	Checkout(ctx context.Context, cartID int64, owner domain.Identity, buyer domain.BuyerInfo) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

var (
	_ CatalogRepository = (*Repository)(nil)
	_ CartRepository    = (*Repository)(nil)
	_ OrderRepository   = (*Repository)(nil)
	_ OutboxRepository  = (*Repository)(nil)
)

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	zap.L().Info("connected to postgres", zap.String("host", cred.Host), zap.String("db", cred.DBName))
	return &Repository{db: db, dialect: DialectPostgres}, nil
}

// NewSQLiteRepository opens a SQLite database. ":memory:" is accepted and
// kept alive on a single connection.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has one writer anyway, and an in-memory database only lives as
	// long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Repository{db: db, dialect: DialectSQLite}, nil
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	var (
		m   *migrate.Migrate
		err error
	)
	switch r.dialect {
	case DialectPostgres:
		driver, e := migratepg.WithInstance(r.db, &migratepg.Config{
			MigrationsTable: "storefront_schema_migrations",
		})
		if e != nil {
			return fmt.Errorf("could not create migration driver: %w", e)
		}
		m, err = migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), "postgres", driver)
	case DialectSQLite:
		driver, e := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
		if e != nil {
			return fmt.Errorf("could not create migration driver: %w", e)
		}
		m, err = migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), "sqlite", driver)
	default:
		return fmt.Errorf("unsupported dialect %q", r.dialect)
	}
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			zap.L().Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// likeOperator is the case-insensitive LIKE of the dialect. SQLite's LIKE
// already ignores ASCII case.
func (r *Repository) likeOperator() string {
	if r.dialect == DialectPostgres {
		return "ILIKE"
	}
	return "LIKE"
}

// constraintError translates unique and foreign key violations of either
// driver into domain errors. It returns nil for anything else.
func constraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return domain.ErrConflict
		case "23503":
			return domain.ErrNotFound
		}
		return nil
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return domain.ErrConflict
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return domain.ErrNotFound
		}
	}
	return nil
}

// args collects positional parameters and hands out $N placeholders, which
// both drivers understand.
type args struct {
	values []any
}

func (a *args) add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}
