package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"legalname":              "Legalname",
		"ownerPercent":           "Owner Percent",
		"ein":                    "EIN",
		"owner_dob":              "Owner DOB",
		"payoutCreditLimit":      "Payout Credit Limit",
		"bankData.accountNumber": "Bank Data Account Number",
		"address1":               "Address 1",
	}
	for name, want := range cases {
		if got := Humanize(name); got != want {
			t.Errorf("Humanize(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLabelFieldsKeepsExplicitLabels(t *testing.T) {
	in := []Field{
		{Name: "dbaname", Label: "DBA Name"},
		{Name: "contacts", Type: FieldTypeGroup, Nested: []Field{
			{Name: "contactEmail"},
		}},
	}
	want := []Field{
		{Name: "dbaname", Label: "DBA Name"},
		{Name: "contacts", Label: "Contacts", Type: FieldTypeGroup, Nested: []Field{
			{Name: "contactEmail", Label: "Contact Email"},
		}},
	}
	got := LabelFields(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LabelFields mismatch (-want +got):\n%s", diff)
	}
	if in[1].Nested[0].Label != "" {
		t.Fatal("LabelFields modified its input")
	}
}
