package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type lookup struct{}

func (lookup) ClientByID(id string) (models.Client, bool) {
	return models.Client{Name: "Ali", Phone: "0500"}, id == "c1"
}
func (lookup) InspectionType(id string) (models.InspectionType, bool) {
	return models.InspectionType{Name: "Full"}, id == "t1"
}
func (lookup) Broker(id string) (models.Broker, bool) {
	return models.Broker{Name: "Omar"}, id == "b1"
}

func TestRequestsWorkbook(t *testing.T) {
	broker := "b1"
	reqs := []models.InspectionRequest{
		{RequestNumber: 1001, ClientID: "c1", InspectionTypeID: "t1", Status: models.StatusComplete,
			Price: 300, BrokerID: &broker, BrokerCommission: 50, PaymentType: models.PaymentCash},
		{RequestNumber: 1002, ClientID: "gone", Status: models.StatusNew, Price: 100},
	}
	var buf bytes.Buffer
	require.NoError(t, Requests(&buf, reqs, lookup{}, "en"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Requests"}, f.GetSheetList())

	rows, err := f.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Request no.", rows[0][0])
	assert.Equal(t, "1001", rows[1][0])
	assert.Equal(t, "Ali", rows[1][2])
	assert.Equal(t, "Complete", rows[1][5])
	assert.Equal(t, "Omar", rows[1][8])
	assert.Equal(t, "250", rows[1][10])
	assert.Equal(t, "", rows[2][2], "unknown client left blank")
}

func TestExpensesWorkbook(t *testing.T) {
	day := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, Expenses(&buf, []models.Expense{
		{Amount: 20.5, Date: day, Description: "Paper"},
		{Amount: 100, Date: day, Description: "Rent", Category: "office"},
	}, "ar"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Expenses")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "2025-02-03", rows[1][0])
	assert.Equal(t, "Total", rows[3][2])
	assert.Equal(t, "120.5", rows[3][3])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "requests-20250203.xlsx", FileName("requests", time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)))
}
