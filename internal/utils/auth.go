package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldworks/sitereport/internal/models"
)

// HashPin hashes an inspector PIN using bcrypt
func HashPin(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), 10)
	return string(bytes), err
}

// CheckPinHash compares a PIN with its stored hash
func CheckPinHash(pin, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	return err == nil
}

// GenerateSessionToken mints the JWT returned by a successful PIN
// login. The UI shell presents it on every localhost API call.
func GenerateSessionToken(inspector *models.Inspector, secret string) (string, error) {
	claims := jwt.MapClaims{
		"id":       inspector.ID,
		"name":     inspector.Name,
		"canForce": inspector.CanForce,
		"type":     "session",
		"exp":      time.Now().Add(time.Hour * 12).Unix(), // One field day
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// GenerateDeviceToken mints the long-lived token this device presents
// to the durable store.
func GenerateDeviceToken(deviceID, secret string) (string, error) {
	claims := jwt.MapClaims{
		"device_id": deviceID,
		"type":      "device",
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(time.Hour * 24 * 365).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
