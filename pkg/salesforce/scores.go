package salesforce

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/analytics"
)

// Custom Account fields the writeback fills. They must exist in the
// target org; VerifyScoreFields checks before the first write.
const (
	FieldScore   = "AI_Presence_Score__c"
	FieldGrade   = "AI_Presence_Grade__c"
	FieldAudited = "AI_Presence_Audited__c"
)

var scoreFieldNames = []string{FieldScore, FieldGrade, FieldAudited}

// ScoreFields maps an analytics result onto the custom Account fields.
// The audit date is sent as a Salesforce date literal.
func ScoreFields(result *analytics.Result, auditedAt time.Time) map[string]any {
	return map[string]any{
		FieldScore:   result.OverallScore,
		FieldGrade:   analytics.Grade(result.OverallScore),
		FieldAudited: auditedAt.Format("2006-01-02"),
	}
}

// UpdateAccountScores writes one audit's overall score and grade to an
// Account record.
func UpdateAccountScores(ctx context.Context, c Client, accountID string, result *analytics.Result, auditedAt time.Time) error {
	if accountID == "" {
		return eris.New("sf: account id is required")
	}
	if result == nil {
		return eris.New("sf: no analytics result to export")
	}
	if err := c.UpdateOne(ctx, "Account", accountID, ScoreFields(result, auditedAt)); err != nil {
		return eris.Wrapf(err, "sf: write scores to account %s", accountID)
	}
	return nil
}

// ScoreUpdate pairs an account with the audit result to write to it.
type ScoreUpdate struct {
	AccountID string
	Result    *analytics.Result
	AuditedAt time.Time
}

// BulkUpdateScores writes many accounts in batches of 200, the
// Collections API limit. Results arrive in input order; a failed batch
// returns the results collected so far.
func BulkUpdateScores(ctx context.Context, c Client, updates []ScoreUpdate) ([]CollectionResult, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	records := make([]CollectionRecord, len(updates))
	for i, u := range updates {
		records[i] = CollectionRecord{ID: u.AccountID, Fields: ScoreFields(u.Result, u.AuditedAt)}
	}

	var all []CollectionResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))

		batch, err := c.UpdateCollection(ctx, "Account", records[start:end])
		if err != nil {
			return all, eris.Wrapf(err, "sf: bulk score update batch %d-%d", start, end)
		}
		all = append(all, batch...)
	}
	return all, nil
}

// VerifyScoreFields confirms the Account object carries the custom
// score fields and that they are updateable. Run once before an export
// so a missing field fails with one clear message instead of a
// per-record API error.
func VerifyScoreFields(ctx context.Context, c Client) error {
	desc, err := c.DescribeSObject(ctx, "Account")
	if err != nil {
		return eris.Wrap(err, "sf: describe Account")
	}

	byName := make(map[string]SObjectField, len(desc.Fields))
	for _, f := range desc.Fields {
		byName[f.Name] = f
	}

	var missing []string
	for _, name := range scoreFieldNames {
		f, ok := byName[name]
		switch {
		case !ok:
			missing = append(missing, name)
		case !f.Updateable:
			missing = append(missing, name+" (not updateable)")
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("sf: Account is missing score fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
