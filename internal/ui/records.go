package ui

import (
	"strconv"

	"github.com/Mohsinsiddi/w3transfer/internal/coordinator"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
)

// TransferColumns is the layout of transfer tables.
var TransferColumns = []Column{
	{Title: "#", Width: 4},
	{Title: "From", Width: 13},
	{Title: "To", Width: 13},
	{Title: "Amount (ETH)", Width: 16},
	{Title: "Keyword", Width: 12},
	{Title: "Message", Width: 24},
	{Title: "Time", Width: 22},
}

// TransferTable renders records newest first, numbered by their position
// in the contract.
func TransferTable(records []coordinator.TransferRecord) *Table {
	t := NewTable(TransferColumns)
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		t.AddRow(TransferRow(i+1, r))
	}
	return t
}

// TransferRow formats one record. Amounts use the exact wei value.
func TransferRow(n int, r coordinator.TransferRecord) Row {
	amount := "0"
	if r.AmountWei != nil {
		amount = units.FormatEther(r.AmountWei)
	}
	return Row{
		strconv.Itoa(n),
		TruncateAddr(wallet.Lower(r.Sender)),
		TruncateAddr(wallet.Lower(r.Recipient)),
		amount,
		r.Keyword,
		r.Message,
		LocalTime(r.Timestamp),
	}
}
