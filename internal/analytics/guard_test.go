package analytics_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlens/internal/analytics"
)

func TestValidateQuery_PlainSelectPasses(t *testing.T) {
	q, err := analytics.ValidateQuery("SELECT vendor_name, SUM(total) FROM invoices GROUP BY vendor_name;")

	require.NoError(t, err)
	assert.Equal(t, "SELECT vendor_name, SUM(total) FROM invoices GROUP BY vendor_name", q)
}

func TestValidateQuery_RejectsNonSelect(t *testing.T) {
	for _, q := range []string{
		"DROP TABLE invoices",
		"DELETE FROM invoices WHERE 1=1",
		"UPDATE invoices SET total = 0",
		"INSERT INTO invoices (id) VALUES ('x')",
		"TRUNCATE invoices",
		"ALTER TABLE invoices DROP COLUMN total",
		"CREATE TABLE evil (id int)",
	} {
		_, err := analytics.ValidateQuery(q)

		var gerr *analytics.GuardError
		require.True(t, errors.As(err, &gerr), "query %q should be rejected", q)
		assert.Equal(t, analytics.KindUnsafeQuery, gerr.Kind)
	}
}

func TestValidateQuery_RejectsDeniedKeywordInsideSelect(t *testing.T) {
	_, err := analytics.ValidateQuery("SELECT * FROM invoices; DROP TABLE invoices")

	var gerr *analytics.GuardError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, analytics.KindUnsafeQuery, gerr.Kind)
	assert.Contains(t, gerr.Reason, "multiple SQL statements")
}

func TestValidateQuery_KeywordInsideLiteralIsAllowed(t *testing.T) {
	q, err := analytics.ValidateQuery("SELECT * FROM invoices WHERE vendor_name = 'Dropbox Update Ltd'")

	require.NoError(t, err)
	assert.Contains(t, q, "Dropbox Update Ltd")
}

func TestValidateQuery_SemicolonInsideLiteralIsAllowed(t *testing.T) {
	_, err := analytics.ValidateQuery("SELECT * FROM invoices WHERE notes = 'a;b'")

	assert.NoError(t, err)
}

func TestValidateQuery_DeniedKeywordOutsideLiteral(t *testing.T) {
	_, err := analytics.ValidateQuery("SELECT * FROM invoices WHERE id IN (SELECT id FROM invoices) AND 1=1 GRANT ALL")

	var gerr *analytics.GuardError
	require.True(t, errors.As(err, &gerr))
	assert.Contains(t, gerr.Reason, "GRANT")
}

func TestValidateQuery_InjectionLiteralRejected(t *testing.T) {
	_, err := analytics.ValidateQuery(`SELECT * FROM invoices WHERE vendor_name = '1 UNION SELECT password FROM users --'`)

	var gerr *analytics.GuardError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, analytics.KindUnsafeQuery, gerr.Kind)
	assert.Contains(t, gerr.Reason, "injection")
}

func TestValidateQuery_EmptyQueryRejected(t *testing.T) {
	_, err := analytics.ValidateQuery("   ;  ")

	var gerr *analytics.GuardError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, analytics.KindUnsafeQuery, gerr.Kind)
}
