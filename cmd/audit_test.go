package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditCmd_RequiresExactlyOneTarget(t *testing.T) {
	origEntity, origResume := auditEntityID, auditResumeID
	defer func() { auditEntityID, auditResumeID = origEntity, origResume }()
	auditCmd.SetContext(context.Background())

	t.Run("neither", func(t *testing.T) {
		auditEntityID, auditResumeID = "", ""
		err := auditCmd.RunE(auditCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one of --entity or --audit")
	})

	t.Run("both", func(t *testing.T) {
		auditEntityID, auditResumeID = "3f6f2a0e", "9b41c7d2"
		err := auditCmd.RunE(auditCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one of --entity or --audit")
	})
}
