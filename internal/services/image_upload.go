package services

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CloudinaryResponse Cloudinary API 响应结构
type CloudinaryResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ImageUploadResult 上传结果
type ImageUploadResult struct {
	PublicID string `json:"public_id"` // 图床内的图片引用，删除时需要
	URL      string `json:"url"`       // CDN 链接
}

// cloudinaryConfig 从环境变量读取图床配置
func cloudinaryConfig() (cloudName, apiKey, apiSecret string, err error) {
	cloudName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey = os.Getenv("CLOUDINARY_API_KEY")
	apiSecret = os.Getenv("CLOUDINARY_API_SECRET")
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return "", "", "", fmt.Errorf("CLOUDINARY_CLOUD_NAME/API_KEY/API_SECRET 未配置")
	}
	return cloudName, apiKey, apiSecret, nil
}

// signParams Cloudinary 签名：参数按 key 排序拼接后追加 secret 取 SHA-1
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := sha1.Sum(b.Bytes())
	return hex.EncodeToString(sum[:])
}

// UploadImage 上传图片到 Cloudinary，folder 用于区分封面图和正文图
// 参数: file - multipart 文件
// 返回: ImageUploadResult, error
func UploadImage(file multipart.File, header *multipart.FileHeader, folder string) (*ImageUploadResult, error) {
	cloudName, apiKey, apiSecret, err := cloudinaryConfig()
	if err != nil {
		return nil, err
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}

	publicID := uuid.NewString()
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signature := signParams(map[string]string{
		"folder":    folder,
		"public_id": publicID,
		"timestamp": timestamp,
	}, apiSecret)

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	part, err := writer.CreateFormFile("file", header.Filename)
	if err != nil {
		return nil, fmt.Errorf("写入请求体失败: %w", err)
	}
	if _, err := part.Write(fileBytes); err != nil {
		return nil, fmt.Errorf("写入请求体失败: %w", err)
	}
	for k, v := range map[string]string{
		"api_key":   apiKey,
		"folder":    folder,
		"public_id": publicID,
		"timestamp": timestamp,
		"signature": signature,
	} {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("写入请求体失败: %w", err)
		}
	}
	writer.Close()

	uploadURL := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", cloudName)
	req, err := http.NewRequest("POST", uploadURL, &requestBody)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("上传请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var cdnResp CloudinaryResponse
	if err := json.Unmarshal(body, &cdnResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if cdnResp.Error.Message != "" {
		return nil, fmt.Errorf("Cloudinary 上传失败: %s", cdnResp.Error.Message)
	}
	if cdnResp.SecureURL == "" {
		return nil, fmt.Errorf("Cloudinary 上传失败: status %d", resp.StatusCode)
	}

	return &ImageUploadResult{
		PublicID: cdnResp.PublicID,
		URL:      cdnResp.SecureURL,
	}, nil
}

// DeleteImage 删除图床上的图片（博客删除或换图时调用）
func DeleteImage(publicID string) error {
	if publicID == "" {
		return nil
	}
	cloudName, apiKey, apiSecret, err := cloudinaryConfig()
	if err != nil {
		return err
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signature := signParams(map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}, apiSecret)

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)
	for k, v := range map[string]string{
		"api_key":   apiKey,
		"public_id": publicID,
		"timestamp": timestamp,
		"signature": signature,
	} {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("写入请求体失败: %w", err)
		}
	}
	writer.Close()

	destroyURL := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/destroy", cloudName)
	req, err := http.NewRequest("POST", destroyURL, &requestBody)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("删除请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Cloudinary 删除失败: status %d", resp.StatusCode)
	}
	return nil
}
