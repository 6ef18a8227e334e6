package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-hub/internal/domain"
)

func newExportFixture(t *testing.T) (*ExportService, *requestServiceFixture) {
	t.Helper()
	f := newRequestServiceFixture(t, day(2024, time.April, 1))
	return NewExportService(f.requests, f.users), f
}

func TestWriteCSV(t *testing.T) {
	export, f := newExportFixture(t)

	req := f.createRequest(t, RequestCreateInput{
		AccountName:    "Globex",
		AccountManager: "Alex Ramos",
		Product:        domain.ProductM365,
		Priority:       domain.RequestPriorityHigh,
		Engagement:     domain.EngagementTraining,
		Description:    "tenant migration\nwith a second line",
	})
	_, err := f.svc.AdminUpdate(context.Background(), f.admin, req.ID, AdminUpdateInput{EngineerID: &f.engineer.ID})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(context.Background(), &buf, f.admin))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exportHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "REQ-00001", row[0])
	assert.Equal(t, "Globex", row[1])
	assert.Equal(t, "Alex Ramos", row[2])
	assert.Equal(t, "alex.ramos@example.com", row[3])
	assert.Equal(t, "Eddie Eng", row[4])
	assert.Equal(t, "eddie@example.com", row[5])
	assert.Equal(t, "high", row[6])
	assert.Equal(t, "ongoing", row[7])
	assert.Equal(t, "training", row[8])
	assert.Equal(t, "2024-04-01", row[9])
	assert.Equal(t, "2024-04-04", row[10])
	assert.Equal(t, "", row[11])
	assert.Equal(t, "tenant migration with a second line", row[12])
}

func TestWriteCSVRequiresAdmin(t *testing.T) {
	export, f := newExportFixture(t)

	var buf bytes.Buffer
	err := export.WriteCSV(context.Background(), &buf, f.requestor)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestWriteCSVUnknownManagerLeavesEmailBlank(t *testing.T) {
	export, f := newExportFixture(t)
	f.createRequest(t, RequestCreateInput{AccountName: "Globex", AccountManager: "Nobody Known"})

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(context.Background(), &buf, f.admin))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][3])
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "requests-2024-04-01.csv", ExportFilename(day(2024, time.April, 1)))
}

func TestOutlookLink(t *testing.T) {
	export, f := newExportFixture(t)
	req := f.createRequest(t, RequestCreateInput{
		AccountName:    "Globex",
		AccountManager: "Alex Ramos",
		Priority:       domain.RequestPriorityHigh,
		Engagement:     domain.EngagementSupport,
		Description:    "please migrate tenant",
	})
	_, err := f.svc.AdminUpdate(context.Background(), f.admin, req.ID, AdminUpdateInput{EngineerID: &f.engineer.ID})
	require.NoError(t, err)

	link, err := export.OutlookLink(context.Background(), f.admin, req.ID)
	require.NoError(t, err)
	assert.Contains(t, link, "mailto:alex.ramos@example.com?subject=")
	assert.Contains(t, link, "Request%20REQ-00001%20-%20Globex")
	assert.NotContains(t, link, "+")

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Hello Alex Ramos,",
		"",
		"Reference: REQ-00001",
		"Account: Globex",
		"Engineer: Eddie Eng",
		"Priority: high",
		"Status: ongoing",
		"Due date: 2024-04-04",
		"Engagement: support",
		"Description: please migrate tenant",
	}, "\r\n"), parsed.Query().Get("body"))
}

func TestOutlookLinkWithoutEngineer(t *testing.T) {
	export, f := newExportFixture(t)
	req := f.createRequest(t, RequestCreateInput{AccountName: "Globex", AccountManager: "alex ramos"})

	link, err := export.OutlookLink(context.Background(), f.admin, req.ID)
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Contains(t, parsed.Query().Get("body"), "Engineer: -")
}

func TestOutlookLinkUnknownManager(t *testing.T) {
	export, f := newExportFixture(t)
	req := f.createRequest(t, RequestCreateInput{AccountName: "Globex", AccountManager: "Nobody Known"})

	_, err := export.OutlookLink(context.Background(), f.admin, req.ID)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestTeamsLink(t *testing.T) {
	export, f := newExportFixture(t)
	req := f.createRequest(t, RequestCreateInput{AccountName: "Globex", AccountManager: "Bianca Cruz"})
	_, err := f.svc.AdminUpdate(context.Background(), f.admin, req.ID, AdminUpdateInput{EngineerID: &f.engineer.ID})
	require.NoError(t, err)

	link, err := export.TeamsLink(context.Background(), f.admin, req.ID)
	require.NoError(t, err)
	assert.Equal(t,
		"https://teams.microsoft.com/l/chat/0/0?users=bianca.cruz%40example.com%2Ceddie%40example.com&topicName=Request+REQ-00001",
		link)
}

func TestTeamsLinkRequiresEngineer(t *testing.T) {
	export, f := newExportFixture(t)
	req := f.createRequest(t, RequestCreateInput{AccountName: "Globex", AccountManager: "Bianca Cruz"})

	_, err := export.TeamsLink(context.Background(), f.admin, req.ID)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestLinksRequireAdmin(t *testing.T) {
	export, f := newExportFixture(t)
	req := f.createRequest(t, RequestCreateInput{AccountName: "Globex", AccountManager: "Bianca Cruz"})

	_, err := export.OutlookLink(context.Background(), f.engineer, req.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}
