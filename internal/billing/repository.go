package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateNumber indicates the bill number uniqueness constraint fired.
var ErrDuplicateNumber = errors.New("billing: duplicate bill number")

// Repository provides PostgreSQL backed persistence for bills.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const billColumns = `id, bill_type, bill_number, bill_date, party_name, party_address,
	party_gstin, party_state, party_state_code, items, total_before_tax,
	sgst, cgst, igst, total_amount, reverse_charge, amount_in_words,
	status, transaction_id, digital_signature, terms, notes, created_at, updated_at`

// CreateBill inserts a fully-validated bill. A unique violation on
// bill_number maps to ErrDuplicateNumber so the service can reallocate.
func (r *Repository) CreateBill(ctx context.Context, bill *Bill) error {
	items, err := json.Marshal(bill.Items)
	if err != nil {
		return fmt.Errorf("billing: marshal items: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO bills (
			id, bill_type, bill_number, bill_date, party_name, party_address,
			party_gstin, party_state, party_state_code, items, total_before_tax,
			sgst, cgst, igst, total_amount, reverse_charge, amount_in_words,
			status, transaction_id, digital_signature, terms, notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		bill.ID, bill.BillType, bill.BillNumber, bill.BillDate,
		bill.PartyName, bill.PartyAddress, bill.PartyGSTIN, bill.PartyState,
		bill.PartyStateCode, items, bill.TotalBeforeTax,
		bill.SGST, bill.CGST, bill.IGST, bill.TotalAmount,
		bill.ReverseCharge, bill.AmountInWords, bill.Status,
		bill.TransactionID, bill.DigitalSignature, bill.Terms, bill.Notes,
		bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("billing: insert bill: %w", err)
	}
	return nil
}

// GetBill fetches a bill by id.
func (r *Repository) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("billing: get bill: %w", err)
	}
	return bill, nil
}

// ListBills returns the filtered page plus the total match count.
func (r *Repository) ListBills(ctx context.Context, filter ListFilter) ([]Bill, int, error) {
	where, args := buildListWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM bills` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("billing: count bills: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`SELECT %s FROM bills%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		billColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, filter.Limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("billing: list bills: %w", err)
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, *bill)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

func buildListWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}
	if filter.Search != "" {
		n := arg("%" + filter.Search + "%")
		clauses = append(clauses, fmt.Sprintf("(party_name ILIKE $%d OR bill_number ILIKE $%d)", n, n))
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg(filter.Status)))
	}
	if filter.MinAmount != nil {
		clauses = append(clauses, fmt.Sprintf("total_amount >= $%d", arg(*filter.MinAmount)))
	}
	if filter.MaxAmount != nil {
		clauses = append(clauses, fmt.Sprintf("total_amount <= $%d", arg(*filter.MaxAmount)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// UpdateBill patches the mutable fields only; immutable columns are never
// referenced here.
func (r *Repository) UpdateBill(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*Bill, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bills SET
			status = COALESCE($2, status),
			terms  = COALESCE($3, terms),
			notes  = COALESCE($4, notes),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+billColumns,
		id, patch.Status, patch.Terms, patch.Notes,
	)
	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("billing: update bill: %w", err)
	}
	return bill, nil
}

func scanBill(row pgx.Row) (*Bill, error) {
	var bill Bill
	var items []byte
	err := row.Scan(
		&bill.ID, &bill.BillType, &bill.BillNumber, &bill.BillDate,
		&bill.PartyName, &bill.PartyAddress, &bill.PartyGSTIN, &bill.PartyState,
		&bill.PartyStateCode, &items, &bill.TotalBeforeTax,
		&bill.SGST, &bill.CGST, &bill.IGST, &bill.TotalAmount,
		&bill.ReverseCharge, &bill.AmountInWords, &bill.Status,
		&bill.TransactionID, &bill.DigitalSignature, &bill.Terms, &bill.Notes,
		&bill.CreatedAt, &bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &bill.Items); err != nil {
			return nil, fmt.Errorf("billing: unmarshal items: %w", err)
		}
	}
	return &bill, nil
}
