package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vsinha/foodplan/pkg/domain/entities"
	"github.com/vsinha/foodplan/pkg/domain/repositories"
)

// Store persists composition edges and the stock ledger in one sqlite file.
// Quantities are stored as decimal text so no precision is lost.
type Store struct {
	db *sql.DB
}

// Verify interface compliance
var _ repositories.CompositionRepository = (*Store)(nil)
var _ repositories.StockLedger = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the schema exists
func Open(path string, maxOpenConns int) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS composition_edges (
			id TEXT PRIMARY KEY,
			parent_item_id TEXT NOT NULL,
			component_item_id TEXT NOT NULL,
			quantity TEXT NOT NULL,
			unit_id TEXT NOT NULL DEFAULT '',
			optional INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			seq INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_composition_edges_parent ON composition_edges(parent_item_id);`,
		`CREATE TABLE IF NOT EXISTS stock_balances (
			location TEXT NOT NULL,
			item_id TEXT NOT NULL,
			balance TEXT NOT NULL,
			PRIMARY KEY (location, item_id)
		);`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			location TEXT NOT NULL,
			type INTEGER NOT NULL,
			delta TEXT NOT NULL,
			balance TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_cell ON stock_movements(location, item_id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

const edgeColumns = `id, parent_item_id, component_item_id, quantity, unit_id, optional, active`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEdge(row rowScanner) (entities.CompositionEdge, error) {
	var (
		edge     entities.CompositionEdge
		id       string
		parent   string
		child    string
		unitID   string
		optional bool
		active   bool
	)
	if err := row.Scan(&id, &parent, &child, &edge.QuantityPerParentUnit, &unitID, &optional, &active); err != nil {
		return entities.CompositionEdge{}, err
	}
	edge.ID = entities.EdgeID(id)
	edge.ParentItemID = entities.ItemID(parent)
	edge.ComponentItemID = entities.ItemID(child)
	edge.UnitID = entities.MeasurementID(unitID)
	edge.Optional = optional
	edge.Active = active
	return edge, nil
}

func (s *Store) queryEdges(query string, args ...interface{}) ([]entities.CompositionEdge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []entities.CompositionEdge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// GetActiveEdges returns a snapshot of all active edges in insertion order
func (s *Store) GetActiveEdges() ([]entities.CompositionEdge, error) {
	return s.queryEdges(`SELECT ` + edgeColumns + ` FROM composition_edges WHERE active = 1 ORDER BY seq`)
}

// GetComponents returns the active edges of a parent item
func (s *Store) GetComponents(parentID entities.ItemID) ([]entities.CompositionEdge, error) {
	return s.queryEdges(`SELECT `+edgeColumns+` FROM composition_edges WHERE active = 1 AND parent_item_id = ? ORDER BY seq`, string(parentID))
}

// GetEdge returns an edge by id, including soft-deleted ones
func (s *Store) GetEdge(id entities.EdgeID) (*entities.CompositionEdge, error) {
	row := s.db.QueryRow(`SELECT `+edgeColumns+` FROM composition_edges WHERE id = ?`, string(id))
	edge, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("edge not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read edge %s: %w", id, err)
	}
	return &edge, nil
}

// SaveEdge inserts a new edge or replaces the stored version of an existing one.
// Insertion order is preserved across replacements.
func (s *Store) SaveEdge(edge entities.CompositionEdge) error {
	return s.saveEdges(s.db, []entities.CompositionEdge{edge})
}

// LoadEdges saves a batch of edges in one transaction
func (s *Store) LoadEdges(edges []entities.CompositionEdge) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := s.saveEdges(tx, edges); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) saveEdges(db execer, edges []entities.CompositionEdge) error {
	for _, edge := range edges {
		if edge.ID == "" {
			return fmt.Errorf("edge id cannot be empty")
		}
		_, err := db.Exec(`INSERT INTO composition_edges (`+edgeColumns+`, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM composition_edges))
			ON CONFLICT(id) DO UPDATE SET
				parent_item_id = excluded.parent_item_id,
				component_item_id = excluded.component_item_id,
				quantity = excluded.quantity,
				unit_id = excluded.unit_id,
				optional = excluded.optional,
				active = excluded.active`,
			string(edge.ID), string(edge.ParentItemID), string(edge.ComponentItemID),
			edge.QuantityPerParentUnit.String(), string(edge.UnitID), edge.Optional, edge.Active)
		if err != nil {
			return fmt.Errorf("failed to save edge %s: %w", edge.ID, err)
		}
	}
	return nil
}

// GetBalance returns the stock on hand, zero for an unknown (location, item)
func (s *Store) GetBalance(location string, itemID entities.ItemID) (decimal.Decimal, error) {
	return s.balance(s.db, location, itemID)
}

type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (s *Store) balance(db querier, location string, itemID entities.ItemID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM stock_balances WHERE location = ? AND item_id = ?`, location, string(itemID)).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance of %s at %s: %w", itemID, location, err)
	}
	return balance, nil
}

// SetBalance seeds the balance of an item at a location without journaling a movement
func (s *Store) SetBalance(location string, itemID entities.ItemID, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("balance for %s at %s cannot be negative: %s", itemID, location, balance)
	}
	_, err := s.db.Exec(`INSERT INTO stock_balances (location, item_id, balance) VALUES (?, ?, ?)
		ON CONFLICT(location, item_id) DO UPDATE SET balance = excluded.balance`,
		location, string(itemID), balance.String())
	if err != nil {
		return fmt.Errorf("failed to set balance of %s at %s: %w", itemID, location, err)
	}
	return nil
}

// Apply commits every movement in one transaction. A movement that would drive a
// balance below zero rolls the whole batch back.
func (s *Store) Apply(movements []entities.StockMovement) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, movement := range movements {
		current, err := s.balance(tx, movement.Location, movement.ItemID)
		if err != nil {
			tx.Rollback()
			return err
		}

		next := current.Add(movement.Delta)
		if next.IsNegative() {
			tx.Rollback()
			return &entities.InsufficientStockError{
				ItemID:    movement.ItemID,
				Location:  movement.Location,
				Requested: movement.Delta.Neg(),
				Available: current,
			}
		}

		if _, err := tx.Exec(`INSERT INTO stock_balances (location, item_id, balance) VALUES (?, ?, ?)
			ON CONFLICT(location, item_id) DO UPDATE SET balance = excluded.balance`,
			movement.Location, string(movement.ItemID), next.String()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to update balance: %w", err)
		}

		recordedAt := movement.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = time.Now().UTC()
		}
		if _, err := tx.Exec(`INSERT INTO stock_movements (id, item_id, location, type, delta, balance, note, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			movement.ID, string(movement.ItemID), movement.Location, int(movement.Type),
			movement.Delta.String(), next.String(), movement.Note, recordedAt.Format(time.RFC3339Nano)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to journal movement %s: %w", movement.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit movements: %w", err)
	}
	return nil
}

// GetMovements returns the journal of one (location, item), oldest first
func (s *Store) GetMovements(location string, itemID entities.ItemID) ([]entities.StockMovement, error) {
	rows, err := s.db.Query(`SELECT id, item_id, location, type, delta, balance, note, timestamp
		FROM stock_movements WHERE location = ? AND item_id = ? ORDER BY rowid`, location, string(itemID))
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []entities.StockMovement
	for rows.Next() {
		var (
			m         entities.StockMovement
			item      string
			kind      int
			timestamp string
		)
		if err := rows.Scan(&m.ID, &item, &m.Location, &kind, &m.Delta, &m.Balance, &m.Note, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		m.ItemID = entities.ItemID(item)
		m.Type = entities.MovementType(kind)
		m.RecordedAt, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp on movement %s: %w", m.ID, err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
