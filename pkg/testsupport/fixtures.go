package testsupport

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	json "github.com/json-iterator/go"
)

// ValidRecord returns a complete Application Record that satisfies every rule
// of the embedded boarding schema. Numbers are float64 so the value compares
// equal to its own JSON round trip.
func ValidRecord() map[string]any {
	return map[string]any{
		"templateId":       float64(123),
		"processingRegion": "US",
		"legalname":        "Acme Holdings LLC",
		"dbaname":          "Acme Coffee",
		"website":          "acme-coffee.com",
		"ein":              "123456789",
		"taxfillname":      "Acme Holdings LLC",
		"license":          "BL-2020-7788",
		"licstate":         "TX",
		"startdate":        "04/15/2015",
		"phonenumber":      "5125550100",
		"faxnumber":        "5125550101",
		"btype":            "Limited Liability Company",
		"mcc":              "5814",

		"baddress":  "100 Congress Ave",
		"baddress1": "Suite 200",
		"bcity":     "Austin",
		"bcountry":  "US",
		"bstate":    "TX",
		"bzip":      "78701",
		"maddress":  "PO Box 1200",
		"maddress1": "",
		"mcity":     "Austin",
		"mcountry":  "US",
		"mstate":    "TX",
		"mzip":      "78767",

		"contacts": []any{
			map[string]any{
				"contactName":  "Dana Reyes",
				"contactEmail": "dana@acme-coffee.com",
				"contactTitle": "Operations",
				"contactPhone": "5125550102",
			},
		},
		"ownership": []any{
			map[string]any{
				"ownername":    "Dana Reyes",
				"ownertitle":   "Managing Member",
				"ownerpercent": float64(100),
				"ownerssn":     "123456789",
				"ownerdob":     "07/04/1980",
				"ownerphone1":  "5125550103",
				"ownerphone2":  "",
				"owneremail":   "dana@acme-coffee.com",
				"ownerdriver":  "TX1234567",
				"odriverstate": "TX",
				"oaddress":     "12 Oak St",
				"ocountry":     "US",
				"ostate":       "TX",
				"ocity":        "Austin",
				"ozip":         "78702",
			},
		},

		"bsummary":           "Specialty coffee shop with online bean sales.",
		"whenCharged":        "When Service Provided",
		"whenProvided":       "30 Days or Less",
		"whenDelivered":      "30 Days or Less",
		"whenRefunded":       "30 Days or Less",
		"binperson":          float64(70),
		"binphone":           float64(5),
		"binweb":             float64(25),
		"annualRevenue":      float64(850000),
		"avgmonthly":         float64(70000),
		"ticketamt":          float64(12),
		"highticketamt":      float64(450),
		"averageMonthlyBill": "",
		"averageBillSize":    "",

		"creditLimit":    float64(5000),
		"recipientEmail": "payouts@acme-coffee.com",
		"bankData": []any{
			map[string]any{
				"nickname":              "Deposit Account",
				"bankName":              "First Austin Bank",
				"routingAccount":        "111000025",
				"accountNumber":         "000123456789",
				"typeAccount":           "Checking",
				"bankAccountHolderName": "Acme Holdings LLC",
				"bankAccountHolderType": "Business",
				"bankAccountFunction":   float64(0),
			},
		},
		"services": map[string]any{
			"card": map[string]any{
				"acceptVisa":       true,
				"acceptMastercard": true,
				"acceptDiscover":   false,
				"acceptAmex":       false,
			},
			"ach": map[string]any{
				"acceptWeb": true,
				"acceptPPD": false,
				"acceptCCD": false,
			},
		},
		"signer": map[string]any{
			"name":       "Dana Reyes",
			"ssn":        "123456789",
			"dob":        "07/04/1980",
			"phone":      "5125550103",
			"email":      "dana@acme-coffee.com",
			"address":    "12 Oak St",
			"address1":   "",
			"country":    "US",
			"state":      "TX",
			"city":       "Austin",
			"zip":        "78702",
			"acceptance": true,
		},
		"recipientEmailNotification": true,
		"resumable":                  false,
	}
}

// RoundTrip encodes value as JSON and decodes it into a generic map.
func RoundTrip(t *testing.T, value any) map[string]any {
	t.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

// AssertEqual fails the test with a go-cmp diff when want and got differ.
func AssertEqual(t *testing.T, label string, want, got any, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("%s mismatch (-want +got):\n%s", label, diff)
	}
}
