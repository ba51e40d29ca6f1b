package memberexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
)

// csvHeader lists the exported columns in order
var csvHeader = []string{
	"id",
	"name",
	"email",
	"graduation_year",
	"city",
	"country",
	"tier",
	"customer_id",
	"subscription_status",
	"member_since",
}

// BuildCSV renders the full member list as a CSV file. It returns the encoded
// bytes and the number of member rows, header excluded.
func BuildCSV(db *gorm.DB) ([]byte, int, error) {
	var users []models.User
	if err := db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load users: %w", err)
	}

	var memberships []models.Membership
	if err := db.Find(&memberships).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load memberships: %w", err)
	}
	membershipByUser := make(map[uint]models.Membership, len(memberships))
	for _, m := range memberships {
		membershipByUser[m.UserID] = m
	}

	// Newest window first, so the first row seen per membership wins
	var subscriptions []models.SubscriptionInformation
	if err := db.Order("`start` DESC").Find(&subscriptions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	latestByMembership := make(map[uint]models.SubscriptionInformation, len(subscriptions))
	for _, s := range subscriptions {
		if _, ok := latestByMembership[s.MembershipID]; !ok {
			latestByMembership[s.MembershipID] = s
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	rows := 0
	for _, u := range users {
		tier := ""
		customerID := ""
		subscriptionStatus := ""
		if m, ok := membershipByUser[u.ID]; ok {
			tier = m.Tier
			customerID = m.CustomerID
			if s, ok := latestByMembership[m.ID]; ok {
				subscriptionStatus = s.Status
			}
		}

		graduationYear := ""
		if u.GraduationYear > 0 {
			graduationYear = strconv.Itoa(u.GraduationYear)
		}

		record := []string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Name,
			u.Email,
			graduationYear,
			u.City,
			u.Country,
			tier,
			customerID,
			subscriptionStatus,
			u.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, 0, fmt.Errorf("failed to write CSV row: %w", err)
		}
		rows++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), rows, nil
}
