package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/types"
	"github.com/coverbridge/coverbridge-backend/internal/utils"
)

// AvatarService renders an initials avatar for new agent accounts and
// stores it in the document store.
type AvatarService interface {
	CreateAndUploadUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) error
}

type avatarService struct {
	log      *logger.Logger
	store    DocumentStore
	fontFace font.Face
	palette  []color.NRGBA
}

func NewAvatarService(log *logger.Logger, store DocumentStore) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	fontPath := strings.TrimSpace(utils.GetEnv("AVATAR_FONT", "", log))
	if fontPath == "" {
		return nil, fmt.Errorf("env var AVATAR_FONT is empty")
	}
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("could not read avatar font: %w", err)
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("could not parse avatar font: %w", err)
	}
	face := truetype.NewFace(parsed, &truetype.Options{Size: 220})

	return &avatarService{
		log:      serviceLog,
		store:    store,
		fontFace: face,
		palette: []color.NRGBA{
			{R: 0x2f, G: 0x6f, B: 0xed, A: 0xff},
			{R: 0x0e, G: 0x9f, B: 0x6e, A: 0xff},
			{R: 0xd6, G: 0x45, B: 0x45, A: 0xff},
			{R: 0x8b, G: 0x5c, B: 0xf6, A: 0xff},
			{R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
			{R: 0x0d, G: 0x94, B: 0x88, A: 0xff},
		},
	}, nil
}

func (av *avatarService) CreateAndUploadUserAvatar(ctx context.Context, _ *gorm.DB, user *types.User) error {
	img, err := av.render(user.FirstName, user.LastName)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("avatars/%s.png", user.ID)
	if err := av.store.Upload(ctx, key, bytes.NewReader(img)); err != nil {
		return fmt.Errorf("failed to upload avatar: %w", err)
	}
	user.AvatarBucketKey = key
	user.AvatarURL = av.store.PublicURL(key)
	return nil
}

func (av *avatarService) render(firstName, lastName string) ([]byte, error) {
	initials := initialsFor(firstName, lastName)
	bg := av.palette[hashName(firstName+lastName)%uint32(len(av.palette))]

	const full = 512
	dc := gg.NewContext(full, full)
	dc.SetColor(bg)
	dc.DrawCircle(full/2, full/2, full/2)
	dc.Fill()
	dc.SetFontFace(av.fontFace)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(initials, full/2, full/2, 0.5, 0.58)

	// Downscale for a crisp 256px asset.
	const final = 256
	scaled := image.NewNRGBA(image.Rect(0, 0, final, final))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), dc.Image(), dc.Image().Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

func initialsFor(firstName, lastName string) string {
	var b strings.Builder
	if f := strings.TrimSpace(firstName); f != "" {
		b.WriteString(strings.ToUpper(f[:1]))
	}
	if l := strings.TrimSpace(lastName); l != "" {
		b.WriteString(strings.ToUpper(l[:1]))
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

func hashName(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return h.Sum32()
}
