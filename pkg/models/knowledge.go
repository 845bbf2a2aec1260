package models

import "time"

// KnowledgeRecord ties a verified email to a site and its knowledge text.
type KnowledgeRecord struct {
	ID               string    `json:"id" bson:"_id,omitempty"`
	SiteID           string    `json:"siteId" bson:"siteId"`
	KnowledgeContext string    `json:"knowledgeContext" bson:"knowledgeContext"`
	Email            string    `json:"email" bson:"email"`
	CreatedAt        time.Time `json:"createdAt" bson:"creatTime"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updateTime,omitempty"`
}
