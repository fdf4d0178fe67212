package types

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type User struct {
	Id            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type Subscription struct {
	Id                string `json:"id"`
	UserId            string `json:"user_id"`
	Plan              string `json:"plan"`
	Status            string `json:"status"`
	StartedAt         string `json:"started_at"`
	CurrentPeriodEnd  string `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	UpdatedAt         string `json:"updated_at"`
}

type Transaction struct {
	Id                    string `json:"id"`
	UserId                string `json:"user_id"`
	Amount                int64  `json:"amount"`
	Currency              string `json:"currency"`
	Plan                  string `json:"plan"`
	Status                string `json:"status"`
	ProviderInvoiceId     string `json:"provider_invoice_id,omitempty"`
	ProviderTransactionId string `json:"provider_transaction_id,omitempty"`
	CreatedAt             string `json:"created_at"`
	UpdatedAt             string `json:"updated_at"`
}

type UserResponse struct {
	User *User `json:"user"`
}

type SubscriptionResponse struct {
	Subscription *Subscription `json:"subscription"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type CreatePaymentResponse struct {
	TransactionId string `json:"transaction_id"`
	PaymentUrl    string `json:"payment_url"`
}

type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AdminUser struct {
	User         *User         `json:"user"`
	Subscription *Subscription `json:"subscription"`
}

type ListUsersResponse struct {
	Users []*AdminUser `json:"users"`
}

type AdminAction struct {
	Id           string `json:"id"`
	AdminUserId  string `json:"admin_user_id"`
	Action       string `json:"action"`
	TargetUserId string `json:"target_user_id,omitempty"`
	Details      string `json:"details"`
	CreatedAt    string `json:"created_at"`
}

type AdminActionResponse struct {
	Action *AdminAction `json:"action"`
}

type ListAdminActionsResponse struct {
	Actions []*AdminAction `json:"actions"`
}
