package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mickamy/qbplan/internal/logging"
	"github.com/mickamy/qbplan/internal/model"
)

// DefaultExplainTemplate receives the query number and the statement.
const DefaultExplainTemplate = "EXPLAIN PLAN SET QUERYNO = %d FOR %s"

const planTable = "PLAN_TABLE"

// Options customises how the explain statement is issued.
type Options struct {
	// Schema qualifies PLAN_TABLE; empty uses the connection's current schema.
	Schema  string
	QueryNo int
	// Commit keeps the explain rows in PLAN_TABLE instead of rolling them back.
	Commit          bool
	Timeout         time.Duration
	ExplainTemplate string
}

// Run explains the provided SQL statement under opts.QueryNo and reads the resulting
// PLAN_TABLE rows back in plan order.
func Run(ctx context.Context, dsn, sqlStatement string, opts Options) ([]model.ExplainRow, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("runner: empty DSN")
	}
	explainSQL, err := explainStatement(sqlStatement, opts)
	if err != nil {
		return nil, err
	}

	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("runner: connect: %w", err)
	}
	defer func() { _ = conn.Close(context.WithoutCancel(ctx)) }()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("runner: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	table := tableName(opts.Schema)
	tag, err := tx.Exec(ctx, deleteStatement(table), opts.QueryNo)
	if err != nil {
		return nil, fmt.Errorf("runner: clear previous plan: %w", err)
	}
	logging.Debug().Int("queryno", opts.QueryNo).Int64("deleted", tag.RowsAffected()).Msg("runner: cleared previous explain rows")

	if _, err := tx.Exec(ctx, explainSQL); err != nil {
		return nil, fmt.Errorf("runner: explain: %w", err)
	}

	rows, err := tx.Query(ctx, selectStatement(table), opts.QueryNo)
	if err != nil {
		return nil, fmt.Errorf("runner: query plan table: %w", err)
	}
	result, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return nil, fmt.Errorf("runner: read plan table: %w", err)
	}
	logging.Debug().Int("queryno", opts.QueryNo).Int("rows", len(result)).Msg("runner: read explain rows")

	if opts.Commit {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("runner: commit: %w", err)
		}
		committed = true
	}
	return result, nil
}

func explainStatement(sqlStatement string, opts Options) (string, error) {
	query := strings.TrimSpace(sqlStatement)
	query = strings.TrimSpace(strings.TrimSuffix(query, ";"))
	if query == "" {
		return "", errors.New("runner: empty sql statement")
	}
	if opts.QueryNo <= 0 {
		return "", fmt.Errorf("runner: query number must be positive, got %d", opts.QueryNo)
	}
	template := opts.ExplainTemplate
	if strings.TrimSpace(template) == "" {
		template = DefaultExplainTemplate
	}
	if strings.Count(template, "%d") != 1 || strings.Count(template, "%s") != 1 {
		return "", fmt.Errorf("runner: explain template %q needs exactly one %%d and one %%s", template)
	}
	return fmt.Sprintf(template, opts.QueryNo, query), nil
}

func tableName(schema string) string {
	if schema = strings.TrimSpace(schema); schema != "" {
		return pgx.Identifier{schema, planTable}.Sanitize()
	}
	return pgx.Identifier{planTable}.Sanitize()
}

func deleteStatement(table string) string {
	return "DELETE FROM " + table + " WHERE QUERYNO = $1"
}

func selectStatement(table string) string {
	return "SELECT QBLOCKNO, PLANNO, QBLOCK_TYPE, METHOD, TNAME, TABLE_TYPE FROM " + table +
		" WHERE QUERYNO = $1 ORDER BY QBLOCKNO, PLANNO DESC"
}

func scanRow(row pgx.CollectableRow) (model.ExplainRow, error) {
	var (
		out                         model.ExplainRow
		blockType, table, tableType *string
	)
	if err := row.Scan(&out.QueryBlock, &out.PlanStep, &blockType, &out.Method, &table, &tableType); err != nil {
		return model.ExplainRow{}, err
	}
	out.BlockType = trimmed(blockType)
	out.TableName = trimmed(table)
	out.TableType = trimmed(tableType)
	return out, nil
}

// trimmed drops the blank padding of CHAR columns; NULL reads as empty.
func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
