package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"carrier_wizard_v1/internal/model"
	"carrier_wizard_v1/internal/normalizer"
	"carrier_wizard_v1/internal/repository"
	"carrier_wizard_v1/pkg/logger"
)

// LabelService 面单归档：解码承运商返回的 Base64 面单并上传到存储
type LabelService struct {
	storage      StorageProvider
	shipmentRepo repository.ShipmentRepository
}

// NewLabelService 创建面单服务
func NewLabelService(storage StorageProvider, shipmentRepo repository.ShipmentRepository) *LabelService {
	return &LabelService{storage: storage, shipmentRepo: shipmentRepo}
}

// labelFormats 面单格式 -> 扩展名, Content-Type
var labelFormats = map[string][2]string{
	"PDF":   {"pdf", "application/pdf"},
	"PNG":   {"png", "image/png"},
	"GIF":   {"gif", "image/gif"},
	"ZPL":   {"zpl", "application/x-zpl"},
	"ZPLII": {"zpl", "application/x-zpl"},
	"EPL2":  {"epl", "application/octet-stream"},
}

// Archive 上传面单并回写运单记录，返回 URL 列表
func (l *LabelService) Archive(ctx context.Context, rec *model.ShipmentRecord, labels []normalizer.LabelDocument) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	packageIDs := make(map[string]int64, len(rec.Packages))
	for _, p := range rec.Packages {
		if p.TrackingNumber != "" {
			packageIDs[p.TrackingNumber] = p.ID
		}
	}

	var urls []string
	packageURLs := make(map[int64]string)
	for i, doc := range labels {
		data, err := decodeLabel(doc.Content)
		if err != nil {
			logger.Warnf("[LabelService] 面单 %d 解码失败 (shipment=%d): %v", i, rec.ID, err)
			continue
		}

		ext, contentType := "bin", ""
		if f, ok := labelFormats[strings.ToUpper(doc.Format)]; ok {
			ext, contentType = f[0], f[1]
		}
		name := doc.TrackingNumber
		if name == "" {
			name = fmt.Sprintf("%s-%d", rec.MasterTrackingNumber, i+1)
		}

		url, err := l.storage.Upload(ctx, data, name+"."+ext, contentType)
		if err != nil {
			return urls, fmt.Errorf("上传面单失败: %w", err)
		}
		urls = append(urls, url)
		if id, ok := packageIDs[doc.TrackingNumber]; ok {
			if _, done := packageURLs[id]; !done {
				packageURLs[id] = url
			}
		}
	}

	if len(urls) == 0 {
		return nil, nil
	}
	if err := l.shipmentRepo.UpdateLabels(ctx, rec.ID, urls, packageURLs); err != nil {
		return urls, fmt.Errorf("保存面单地址失败: %w", err)
	}
	return urls, nil
}

// Rearchive 从保存的原始报文重新提取面单并归档，用于上传失败后的补偿
func (l *LabelService) Rearchive(ctx context.Context, rec *model.ShipmentRecord) ([]string, error) {
	if len(rec.RawPayload) == 0 {
		return nil, fmt.Errorf("运单 %d 没有原始报文", rec.ID)
	}
	conf := normalizer.NormalizeShipmentConfirmation(rec.RawPayload)
	if !conf.Available {
		return nil, fmt.Errorf("运单 %d 原始报文无法识别: %w", rec.ID, normalizer.ErrUnrecognizedSchema)
	}
	return l.Archive(ctx, rec, conf.Labels())
}

// decodeLabel 兼容 data URL 前缀
func decodeLabel(content string) ([]byte, error) {
	if idx := strings.Index(content, ","); idx != -1 && strings.HasPrefix(content, "data:") {
		content = content[idx+1:]
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("面单内容为空")
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("Base64 解码失败: %v", err)
	}
	return data, nil
}
