// agent_jwt.go
// 该文件定义 Agent 专属的 JWT 相关内容，包括 Claims 结构体和 JWT 管理器
// Agent 只需要上报扫描结果，令牌不区分访问/刷新
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HectorPOsuna/escaner-red/internal/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// AgentAudience Agent 令牌受众
const AgentAudience = "escaner-agent"

var (
	// ErrMissingToken 请求未携带令牌
	ErrMissingToken = errors.New("missing agent token")
	// ErrInvalidToken 令牌签名、受众或声明不合法
	ErrInvalidToken = errors.New("invalid agent token")
)

// AgentClaims 定义 Agent 专属的 JWT Claims
// 区别于用户系统的 Claims，这里只包含 Agent 及其宿主机的身份信息
type AgentClaims struct {
	AgentID  string `json:"agent_id"` // Agent UUID
	Hostname string `json:"hostname"` // 机器主机名
	jwt.RegisteredClaims
}

// AgentJWTManager Agent 令牌管理器(HS256)
type AgentJWTManager struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewAgentJWTManager 创建 Agent 令牌管理器
func NewAgentJWTManager(secretKey, issuer string, ttl time.Duration) *AgentJWTManager {
	return &AgentJWTManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       ttl,
		now:       time.Now,
	}
}

// GenerateToken 为 Agent 签发令牌
// agentID 为空时生成新的 UUID
func (m *AgentJWTManager) GenerateToken(agentID, hostname string) (string, *AgentClaims, error) {
	if agentID == "" {
		id, err := utils.GenerateUUID()
		if err != nil {
			return "", nil, fmt.Errorf("failed to generate agent id: %w", err)
		}
		agentID = id
	}

	now := m.now()
	claims := &AgentClaims{
		AgentID:  agentID,
		Hostname: hostname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   agentID,
			Audience:  []string{AgentAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign agent token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken 验证 Agent 令牌
func (m *AgentJWTManager) ValidateToken(tokenString string) (*AgentClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &AgentClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	},
		jwt.WithAudience(AgentAudience),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AgentClaims)
	if !ok || !token.Valid || claims.AgentID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractTokenFromHeader 从Authorization头中提取令牌
func ExtractTokenFromHeader(authHeader string) string {
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
