package payhere

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// The gateway validates request origin with a fixed MD5 checksum. Field
// order, two-decimal amount formatting, and uppercase hex are all mandated
// by PayHere; any deviation silently invalidates the payment at their end.

// FormatAmount renders an amount the way the checksum requires. The
// positivity check runs on the formatted result, so values that round to
// "0.00" are rejected and never get signed.
func FormatAmount(amount float64) (string, error) {
	formatted := strconv.FormatFloat(amount, 'f', 2, 64)
	if parsed, err := strconv.ParseFloat(formatted, 64); err != nil || parsed <= 0 {
		return "", fmt.Errorf("payhere: formatted amount %q must be positive", formatted)
	}
	return formatted, nil
}

// GenerateHash computes the payment-initiation checksum:
// upper(md5(merchant_id + order_id + amount + currency + upper(md5(secret)))).
// formattedAmount must already be in two-decimal form.
func GenerateHash(merchantID, orderID, formattedAmount, currency, merchantSecret string) string {
	return md5Upper(merchantID + orderID + formattedAmount + currency + md5Upper(merchantSecret))
}

// VerifyNotificationSig checks the md5sig field of a status notification:
// upper(md5(merchant_id + order_id + amount + currency + status_code +
// upper(md5(secret)))).
func VerifyNotificationSig(merchantID, orderID, amount, currency, statusCode, md5sig, merchantSecret string) bool {
	expected := md5Upper(merchantID + orderID + amount + currency + statusCode + md5Upper(merchantSecret))
	return strings.EqualFold(expected, md5sig)
}

func md5Upper(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
