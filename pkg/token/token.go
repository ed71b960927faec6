package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// secretKey 是服务器在启动时生成的32字节密钥。
// 进程重启后旧的登录凭证全部失效，需要重新登录。
var secretKey []byte

// IdentityClaims 定义了写入登录Cookie的已签名数据。
type IdentityClaims struct {
	UID   string `json:"u"`
	Email string `json:"e"`
}

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
func GenerateSecretKey() {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic("无法生成安全的密钥: " + err.Error())
	}
	secretKey = key
	fmt.Println("HMAC密钥已成功生成。")
}

// SignIdentity 将身份声明序列化并用HMAC-SHA256签名，
// 返回 "payload.signature" 形式的Cookie值。
func SignIdentity(claims IdentityClaims) (string, error) {
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", errors.New("无法序列化身份声明")
	}

	mac := hmac.New(sha256.New, secretKey)
	mac.Write(payloadBytes)
	signature := mac.Sum(nil)

	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	encodedSignature := base64.RawURLEncoding.EncodeToString(signature)
	return encodedPayload + "." + encodedSignature, nil
}

// ParseIdentity 验证Cookie值的签名并还原身份声明。
// 签名不匹配或格式非法时返回错误。
func ParseIdentity(value string) (IdentityClaims, error) {
	var claims IdentityClaims

	parts := strings.SplitN(value, ".", 2)
	if len(parts) != 2 {
		return claims, errors.New("登录凭证格式非法")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return claims, errors.New("登录凭证payload解码失败")
	}
	actualSignature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return claims, errors.New("登录凭证签名解码失败")
	}

	mac := hmac.New(sha256.New, secretKey)
	mac.Write(payloadBytes)
	expectedSignature := mac.Sum(nil)

	// 使用 hmac.Equal 进行时间恒定的比较，防止时序攻击
	if !hmac.Equal(expectedSignature, actualSignature) {
		return claims, errors.New("登录凭证签名不匹配")
	}

	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return claims, errors.New("无法解析身份声明")
	}
	return claims, nil
}
