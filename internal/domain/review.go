package domain

import (
	"math"
	"strconv"
)

type Review struct {
	ID            string `db:"id" json:"id"`
	UserID        string `db:"user_id" json:"user_id"`
	UserName      string `db:"user_name" json:"user_name"`
	OrderID       string `db:"order_id" json:"order_id"`
	SellerID      string `db:"seller_id" json:"seller_id"`
	ProductID     string `db:"product_id" json:"product_id,omitempty"`
	Rating        int    `db:"rating" json:"rating"`
	Comment       string `db:"comment" json:"comment,omitempty"`
	SellerReply   string `db:"seller_reply" json:"seller_reply,omitempty"`
	SellerReplyAt string `db:"seller_reply_at" json:"seller_reply_at,omitempty"`
	CreatedAt     string `db:"created_at" json:"created_at"`
}

// RatingSummary is the aggregate written back onto the seller.
type RatingSummary struct {
	Average float64 `db:"average" json:"average"`
	Count   int     `db:"count" json:"count"`
}

// ReviewStats is the public breakdown shown next to review lists.
type ReviewStats struct {
	Total        int            `json:"total"`
	Average      float64        `json:"average"`
	Distribution map[string]int `json:"distribution"`
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// StatsOf computes stats over an already loaded review list.
func StatsOf(reviews []Review) ReviewStats {
	st := ReviewStats{Distribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
		if r.Rating >= 1 && r.Rating <= 5 {
			st.Distribution[strconv.Itoa(r.Rating)]++
		}
	}
	st.Total = len(reviews)
	if st.Total > 0 {
		st.Average = RoundRating(float64(sum) / float64(st.Total))
	}
	return st
}
