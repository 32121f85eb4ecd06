package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account is the slice of a CRM account record the writeback works
// with.
type Account struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	Website  string `json:"Website"`
	Industry string `json:"Industry"`
}

// accountFields are the SOQL fields selected for Account lookups.
var accountFields = []string{"Id", "Name", "Website", "Industry"}

// FindAccountByWebsite returns the Account whose Website matches, or
// nil when none does. Entity websites are the preferred join key since
// they change less often than names.
func FindAccountByWebsite(ctx context.Context, c Client, website string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Website LIKE '%s' LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(website),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrapf(err, "sf: find account by website %s", website)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// FindAccountByName returns the Account with the exact name, or nil
// when none matches. Used as the fallback for entities with no website
// on file.
func FindAccountByName(ctx context.Context, c Client, name string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Name = '%s' LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(name),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrapf(err, "sf: find account by name %s", name)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// escapeSoql escapes single quotes in SOQL string literals.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
