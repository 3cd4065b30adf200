package service

import (
	"context"
	"strings"

	"tourhub/internal/apperr"
	"tourhub/internal/models"
	"tourhub/internal/repository"

	"gorm.io/gorm"
)

type DestinationInput struct {
	Name        *string
	Country     *string
	Description *string
}

type DestinationService struct {
	repo  *repository.DestinationRepository
	media *Media
}

func NewDestinationService(db *gorm.DB, media *Media) *DestinationService {
	return &DestinationService{repo: repository.NewDestinationRepository(db), media: media}
}

func (s *DestinationService) List(search string) ([]models.Destination, error) {
	list, err := s.repo.List(search)
	return list, dbErr(err)
}

func (s *DestinationService) Get(id uint) (*models.Destination, error) {
	d, err := s.repo.GetByID(id)
	return d, notFound(err, "Destination not found")
}

func (s *DestinationService) Create(ctx context.Context, in DestinationInput, image *Upload) (*models.Destination, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.BadRequest("Name is required")
	}
	d := &models.Destination{Name: strings.TrimSpace(*in.Name)}
	in.apply(d)
	url, err := s.media.UploadOne(ctx, "destinations", image)
	if err != nil {
		return nil, err
	}
	d.Image = url
	if err := s.repo.Create(d); err != nil {
		s.media.Delete(context.Background(), url)
		return nil, dbErr(err)
	}
	return d, nil
}

func (s *DestinationService) Update(ctx context.Context, id uint, in DestinationInput, image *Upload) (*models.Destination, error) {
	d, err := s.repo.GetByID(id)
	if err != nil {
		return nil, notFound(err, "Destination not found")
	}
	in.apply(d)
	old := ""
	if image != nil {
		url, err := s.media.UploadOne(ctx, "destinations", image)
		if err != nil {
			return nil, err
		}
		old, d.Image = d.Image, url
	}
	if err := s.repo.Update(d); err != nil {
		return nil, dbErr(err)
	}
	s.media.Delete(context.Background(), old)
	return d, nil
}

func (s *DestinationService) Delete(ctx context.Context, id uint) error {
	d, err := s.repo.GetByID(id)
	if err != nil {
		return notFound(err, "Destination not found")
	}
	if err := s.repo.Delete(id); err != nil {
		return dbErr(err)
	}
	s.media.Delete(ctx, d.Image)
	return nil
}

func (in DestinationInput) apply(d *models.Destination) {
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		d.Name = strings.TrimSpace(*in.Name)
	}
	if in.Country != nil {
		d.Country = *in.Country
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
}
