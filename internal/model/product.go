package model

import "time"

type Product struct {
	ID          string      `gorm:"primaryKey;size:32" json:"_id"`
	Name        string      `gorm:"not null" json:"name"`
	Description string      `json:"description"`
	Price       float64     `gorm:"not null" json:"price"`
	Category    string      `gorm:"index" json:"category"`
	SubCategory string      `json:"subCategory"`
	Sizes       StringSlice `gorm:"type:text" json:"sizes"`
	Bestseller  bool        `json:"bestseller"`
	Images      StringSlice `gorm:"type:text" json:"image"` // Public URLs handed out to clients
	// Object keys on the asset host, needed to delete the images with the product
	ImageKeys StringSlice `gorm:"type:text" json:"-"`
	Date      int64       `gorm:"not null;index" json:"date"` // Unix milliseconds
	Reviews   []Review    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"reviews"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ProductID string    `gorm:"index;size:32" json:"-"`
	UserID    string    `gorm:"index;size:32" json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Date      time.Time `json:"date"`
}
