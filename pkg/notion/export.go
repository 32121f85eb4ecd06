package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
)

// Property names shared between the exporter and the page lookups. The
// Audit ID column is the upsert key, so renaming it in the Notion
// database orphans every exported row.
const (
	propTitle   = "Name"
	propAuditID = "Audit ID"
)

// AuditProperties flattens an audit's scores into the page property set.
// The column names are the contract with the target database; missing
// columns fail the API call with a validation error rather than being
// dropped silently.
func AuditProperties(entity *model.Entity, aud *model.Audit, result *analytics.Result) notionapi.Properties {
	props := notionapi.Properties{
		propTitle:        titleProp(entity.Name),
		propAuditID:      richTextProp(aud.ID),
		"Kind":           selectProp(string(entity.Kind)),
		"Audited":        dateProp(aud.UpdatedAt),
		"Overall":        numberProp(result.OverallScore),
		"Grade":          selectProp(analytics.Grade(result.OverallScore)),
		"Visibility":     numberProp(result.Scores.Visibility),
		"Authority":      numberProp(result.Scores.Authority),
		"Sentiment":      numberProp(result.Scores.Sentiment),
		"Completeness":   numberProp(result.Scores.Completeness),
		"Source Quality": numberProp(result.Scores.SourceQuality),
		"Optimization":   numberProp(result.Scores.Optimization),
		"Percentile":     numberProp(float64(result.Benchmark.Percentile)),
		"Sources":        numberProp(float64(result.SourceAnalysis.TotalSources)),
		"Cost (USD)":     numberProp(aud.TotalCost),
		"Table Version":  selectProp(result.TableVersion),
	}
	if entity.Industry != "" {
		props["Industry"] = selectProp(entity.Industry)
	}
	if len(entity.Websites) > 0 {
		props["Website"] = urlProp(entity.Websites[0])
	}
	return props
}

// ExportAudit writes one audit's scores to the database, refreshing the
// page that already carries its audit ID or creating a new one. It
// returns the page ID and whether a page was created.
func ExportAudit(ctx context.Context, c Client, dbID string, entity *model.Entity, aud *model.Audit, result *analytics.Result) (string, bool, error) {
	page, err := FindAuditPage(ctx, c, dbID, aud.ID)
	if err != nil {
		return "", false, err
	}

	pageID := ""
	if page != nil {
		pageID = page.ID.String()
	}
	return ExportAuditAt(ctx, c, dbID, pageID, entity, aud, result)
}

// ExportAuditAt writes one audit's scores to a known page, or creates a
// page when pageID is empty. Bulk exports resolve page IDs up front
// with ExistingAuditPages and call this per audit.
func ExportAuditAt(ctx context.Context, c Client, dbID, pageID string, entity *model.Entity, aud *model.Audit, result *analytics.Result) (string, bool, error) {
	if result == nil {
		return "", false, eris.New("notion: no analytics result to export")
	}
	props := AuditProperties(entity, aud, result)

	if pageID != "" {
		page, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props})
		if err != nil {
			return "", false, eris.Wrapf(err, "notion: refresh audit %s", aud.ID)
		}
		return page.ID.String(), false, nil
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", false, eris.Wrapf(err, "notion: export audit %s", aud.ID)
	}
	return page.ID.String(), true, nil
}

func titleProp(v string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type: notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}},
		},
	}
}

func richTextProp(v string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}},
		},
	}
}

func numberProp(v float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{
		Type:   notionapi.PropertyTypeNumber,
		Number: v,
	}
}

func selectProp(v string) notionapi.SelectProperty {
	return notionapi.SelectProperty{
		Type:   notionapi.PropertyTypeSelect,
		Select: notionapi.Option{Name: v},
	}
}

func dateProp(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{
		Type: notionapi.PropertyTypeDate,
		Date: &notionapi.DateObject{Start: &d},
	}
}

func urlProp(v string) notionapi.URLProperty {
	return notionapi.URLProperty{
		Type: notionapi.PropertyTypeURL,
		URL:  v,
	}
}
