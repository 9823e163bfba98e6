package ledger

// ResponseCode is the outcome of a ledger operation. The string values are
// part of the wire contract and must not change.
type ResponseCode string

const (
	Success          ResponseCode = "SUCCESS"
	NoAccount        ResponseCode = "NO_ACCOUNT"
	NoSourceAccount  ResponseCode = "NO_SOURCE_ACCOUNT"
	NoTargetAccount  ResponseCode = "NO_TARGET_ACCOUNT"
	IncorrectPin     ResponseCode = "INCORRECT_PIN"
	EmptyAmount      ResponseCode = "EMPTY_AMOUNT"
	NotEnoughBalance ResponseCode = "NOT_ENOUGH_BALANCE"
)

var responseMessages = map[ResponseCode]string{
	Success:          "Operation completed successfully",
	NoAccount:        "Account not found",
	NoSourceAccount:  "Source account not found",
	NoTargetAccount:  "Target account not found",
	IncorrectPin:     "Incorrect PIN",
	EmptyAmount:      "Amount must be greater than zero",
	NotEnoughBalance: "Not enough balance",
}

// ResponseCodes lists every code in declaration order.
func ResponseCodes() []ResponseCode {
	return []ResponseCode{
		Success,
		NoAccount,
		NoSourceAccount,
		NoTargetAccount,
		IncorrectPin,
		EmptyAmount,
		NotEnoughBalance,
	}
}

func (c ResponseCode) String() string {
	return string(c)
}

// Message returns a human-readable description of the code.
func (c ResponseCode) Message() string {
	if msg, ok := responseMessages[c]; ok {
		return msg
	}
	return "Unknown response code"
}

// IsSuccess reports whether the operation was applied.
func (c ResponseCode) IsSuccess() bool {
	return c == Success
}
