// Package models defines user plan, usage and creation record types.
package models

import "time"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

type User struct {
	UserID    string `db:"user_id"`
	Email     string `db:"email"`
	Name      string `db:"name"`
	Plan      Plan   `db:"plan"`
	FreeUsage int    `db:"free_usage"`
}

// Entitlement is the resolved plan and free-usage counter for a user at
// request time. FreeUsage is only meaningful while Plan is free.
type Entitlement struct {
	Plan      Plan
	FreeUsage int
}

type CreationType string

const (
	CreationArticle      CreationType = "article"
	CreationBlogTitle    CreationType = "blog-title"
	CreationImage        CreationType = "image"
	CreationResumeReview CreationType = "resume-review"
)

// Creation is one successful feature invocation. Rows are append-only.
type Creation struct {
	ID        int64        `json:"id"`
	UserID    string       `json:"user_id"`
	Prompt    string       `json:"prompt"`
	Content   string       `json:"content"`
	Type      CreationType `json:"type"`
	Publish   bool         `json:"publish"`
	CreatedAt time.Time    `json:"created_at"`
}
