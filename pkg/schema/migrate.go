package schema

import "github.com/goliatone/go-boarding/internal/paths"

const (
	legacyDepositKey    = "depositAccount"
	legacyWithdrawalKey = "withdrawalAccount"
	bankDataKey         = "bankData"
)

// MigrateBankAccounts rewrites snapshots saved before bank accounts became a
// repeated group. Legacy depositAccount/withdrawalAccount objects turn into
// bankData entries with the matching account function and are removed. When
// neither legacy object nor bankData exists the declared default entries are
// seeded. Snapshots that already carry bankData are left untouched. It
// reports whether values changed.
func (s *Schema) MigrateBankAccounts(values map[string]any) bool {
	if values == nil {
		return false
	}
	if _, present := values[bankDataKey]; present {
		return false
	}
	deposit, hasDeposit := values[legacyDepositKey].(map[string]any)
	withdrawal, hasWithdrawal := values[legacyWithdrawalKey].(map[string]any)

	if !hasDeposit && !hasWithdrawal {
		field, ok := s.Rule(bankDataKey)
		if !ok {
			return false
		}
		values[bankDataKey] = groupDefaults(field)
		return true
	}

	var entries []any
	if hasDeposit {
		entries = append(entries, legacyEntry(deposit, "Deposit Account", 0, "id", "fileUpload"))
	}
	if hasWithdrawal {
		entries = append(entries, legacyEntry(withdrawal, "Withdrawal Account", 1, "id"))
	}
	values[bankDataKey] = entries
	delete(values, legacyDepositKey)
	delete(values, legacyWithdrawalKey)
	return true
}

// legacyEntry converts a legacy account, dropping the keys in strip. A
// nickname saved on the account wins over the default one.
func legacyEntry(src map[string]any, nickname string, function float64, strip ...string) map[string]any {
	entry := paths.CloneMap(src)
	for _, key := range strip {
		delete(entry, key)
	}
	if _, ok := entry["nickname"]; !ok {
		entry["nickname"] = nickname
	}
	entry["bankAccountFunction"] = function
	return entry
}
