package domain

import "time"

// ProductID is assigned by the product store on insert and never reused.
type ProductID uint64

type Product struct {
	ID        ProductID `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Price     float64   `gorm:"not null" json:"price"`
	Stock     int       `gorm:"not null" json:"stock"`
	Thumbnail string    `gorm:"type:text" json:"thumbnail,omitempty"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"createdBy,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// ProductInput is a candidate product as submitted by a client.
type ProductInput struct {
	Name      string  `json:"name" validate:"notblank,max=255"`
	Price     float64 `json:"price" validate:"gt=0"`
	Stock     int     `json:"stock" validate:"gt=0"`
	Thumbnail string  `json:"thumbnail,omitempty" validate:"omitempty,http_url"`
	CreatedBy string  `json:"-"`
}

func (in ProductInput) ToProduct() Product {
	return Product{
		Name:      in.Name,
		Price:     in.Price,
		Stock:     in.Stock,
		Thumbnail: in.Thumbnail,
		CreatedBy: in.CreatedBy,
	}
}
