package handler

// CreateTransferRequest represents a request to transfer money between accounts
type CreateTransferRequest struct {
	OriginAccountID          string `json:"origin_account_id" binding:"required,uuid"`
	DestinationAccountNumber int64  `json:"destination_account_number" binding:"required,gt=0"`
	Amount                   string `json:"amount" binding:"required"`
}

// TransferResponse represents a transfer in API responses
type TransferResponse struct {
	TransferID           string `json:"transfer_id"`
	OriginAccountID      string `json:"origin_account_id"`
	DestinationAccountID string `json:"destination_account_id"`
	Amount               string `json:"amount"`
	MovementDate         string `json:"movement_date"`
	Status               string `json:"status"`
}
