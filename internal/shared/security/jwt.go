package security

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrJWTSecretMissing = errors.New("JWT_SECRET is not set")
	ErrUnknownRole      = errors.New("unknown token role")
)

const (
	issuer = "warfront"

	// RoleCommander 可以对本王国的军队下达战斗指令
	RoleCommander = "commander"
	// RoleObserver 只读：查询战斗与战报
	RoleObserver = "observer"

	defaultTTL = 24 * time.Hour
)

// Claims 标识令牌持有者代表的王国与权限。Kingdom 为 0 表示不限王国（运维/GM）。
type Claims struct {
	Kingdom int    `json:"kingdom"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) CanCommand() bool {
	return c != nil && c.Role == RoleCommander
}

func jwtSecret() ([]byte, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, ErrJWTSecretMissing
	}
	return []byte(secret), nil
}

// Award 为王国签发令牌，ttl<=0 时使用 24 小时。
func Award(kingdom int, role string, ttl time.Duration) (string, error) {
	if role != RoleCommander && role != RoleObserver {
		return "", ErrUnknownRole
	}
	key, err := jwtSecret()
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	now := time.Now()
	claims := &Claims{
		Kingdom: kingdom,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseToken 校验签名、过期时间、签发方与角色。
func ParseToken(tokenStr string) (*Claims, error) {
	key, err := jwtSecret()
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Role != RoleCommander && claims.Role != RoleObserver {
		return nil, ErrUnknownRole
	}
	return claims, nil
}
