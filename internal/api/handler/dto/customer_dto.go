package dto

import (
	"loanbook/internal/domain/customer"
)

type CustomerResponse struct {
	ID           string `json:"id"`
	CustomerCode string `json:"customerCode"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Category     string `json:"category,omitempty"`
}

func NewCustomerResponse(c *customer.Customer) *CustomerResponse {
	if c == nil {
		return nil
	}
	return &CustomerResponse{
		ID:           c.ID.String(),
		CustomerCode: c.CustomerCode,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		FullName:     c.FullName(),
		Phone:        c.Phone,
		Email:        c.Email,
		Category:     c.Category,
	}
}
