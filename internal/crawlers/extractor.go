package crawlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// ListingRules 列表页的识别规则
type ListingRules struct {
	FolderLinkContains string // 文件夹链接必须包含的片段
	TargetLabel        string // 目标链接文本,完全匹配
	NextLabel          string // 下一页链接文本,包含匹配
}

// Listing 单个列表页的提取结果
type Listing struct {
	Children []string // 子文件夹链接
	Targets  []string // 版本历史链接
	Next     string   // 下一页链接,没有时为空
}

// ListingSource 列表页来源
type ListingSource interface {
	Extract(ctx context.Context, pageURL string) (*Listing, error)
}

// Extractor 列表页链接提取器
// 职责: 打开页面,等待内容出现,读取一次DOM,关闭页面。不做递归
type Extractor struct {
	browser Browser
	config  models.CollectConfig
	rules   ListingRules
}

// NewExtractor 创建提取器
func NewExtractor(browser Browser, config models.CollectConfig) *Extractor {
	return &Extractor{
		browser: browser,
		config:  config,
		rules: ListingRules{
			FolderLinkContains: config.FolderLinkContains,
			TargetLabel:        config.TargetLabel,
			NextLabel:          config.NextLabel,
		},
	}
}

// Extract 提取单个列表页
func (e *Extractor) Extract(ctx context.Context, pageURL string) (listing *Listing, err error) {
	page, err := e.browser.OpenPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrExtraction, err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("url", pageURL).Msg("关闭标签页失败")
		}
	}()

	start := time.Now()
	if err := page.Navigate(pageURL, e.config.NavTimeout); err != nil {
		return nil, wrapExtraction(err)
	}
	if err := page.WaitMarker(e.config.MarkerSelector, e.config.MarkerTimeout); err != nil {
		return nil, wrapExtraction(err)
	}

	content, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("%w: 读取页面HTML失败: %w", models.ErrExtraction, err)
	}

	listing, err = ParseListing(content, pageURL, e.rules)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("url", pageURL).
		Int("children", len(listing.Children)).
		Int("targets", len(listing.Targets)).
		Bool("has_next", listing.Next != "").
		Dur("elapsed", time.Since(start)).
		Msg("列表页读取完成")

	return listing, nil
}

// wrapExtraction 超时保持ErrNavigationTimeout分类,其余归入ErrExtraction
func wrapExtraction(err error) error {
	if models.ErrorKind(err) == "navigation_timeout" {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrExtraction, err)
}

// ParseListing 从渲染后的HTML中提取子文件夹、目标链接和下一页链接
// 相对链接按<base href>或pageURL解析为绝对地址
func ParseListing(htmlContent string, pageURL string, rules ListingRules) (*Listing, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("%w: 解析HTML失败: %w", models.ErrExtraction, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析页面URL失败: %w", models.ErrExtraction, err)
	}
	if href, ok := findBaseHref(doc); ok {
		if baseRef, err := url.Parse(href); err == nil {
			base = base.ResolveReference(baseRef)
		}
	}

	resolve := func(n *html.Node) string {
		href, ok := attr(n, "href")
		if !ok || strings.TrimSpace(href) == "" {
			return ""
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return ""
		}
		return base.ResolveReference(ref).String()
	}

	listing := &Listing{}
	nextFound := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "tr":
				if cell := nthElementChild(n, 2); cell != nil && cell.Data == "td" {
					if a := firstDescendant(cell, "a"); a != nil {
						if link := resolve(a); link != "" && strings.Contains(link, rules.FolderLinkContains) {
							listing.Children = append(listing.Children, link)
						}
					}
				}
			case "a":
				text := textContent(n)
				if text == rules.TargetLabel {
					if link := resolve(n); link != "" {
						listing.Targets = append(listing.Targets, link)
					}
				}
				if !nextFound && rules.NextLabel != "" && strings.Contains(text, rules.NextLabel) {
					if link := resolve(n); link != "" {
						listing.Next = link
						nextFound = true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return listing, nil
}

func findBaseHref(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "base" {
		if href, ok := attr(n, "href"); ok && href != "" {
			return href, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href, ok := findBaseHref(c); ok {
			return href, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// nthElementChild 返回第n个元素子节点(从1开始,与CSS :nth-child一致)
func nthElementChild(n *html.Node, idx int) *html.Node {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		i++
		if i == idx {
			return c
		}
	}
	return nil
}

func firstDescendant(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := firstDescendant(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}
