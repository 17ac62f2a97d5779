package models

import "time"

type Campaign struct {
	ID       string
	Name     string
	StartsAt *time.Time
	EndsAt   *time.Time
}

type Group struct {
	ID          string
	CampaignID  string
	Name        string
	LocationIDs []string
}

type Location struct {
	ID   string
	Name string
	Code string
}

type Article struct {
	ID          string
	Code        string
	Barcode     string
	Description string
	LocationIDs []string
}
