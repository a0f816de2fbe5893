package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/nc-lab-dev/task-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var roles = []domain.Role{
	domain.RoleViewer,
	domain.RolePlanner,
	domain.RoleAdmin,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

var skillPool = []string{"分析", "后端", "前端", "测试", "运维", "文档", "设计"}

// GenerateRandomWorker 生成一个带随机技能组合的工人
func GenerateRandomWorker(index int) *domain.Worker {
	name := GenerateRandomChineseName()

	skills := make(map[string]float64)
	skillCount := rand.Intn(3) + 2
	for _, i := range rand.Perm(len(skillPool))[:skillCount] {
		// 技能熟练度保留两位小数，避免种子数据里出现冗长的浮点数
		skills[skillPool[i]] = float64(rand.Intn(81)+20) / 100
	}

	return &domain.Worker{
		WorkerKey:      fmt.Sprintf("W%02d", index),
		Name:           name,
		Skills:         skills,
		AvailableHours: float64(rand.Intn(21) + 20),
	}
}

// GenerateRandomTasks 生成 count 个任务，依赖只指向编号更小的任务，因此一定无环
func GenerateRandomTasks(count int) []*domain.Task {
	tasks := make([]*domain.Task, count)

	for i := 0; i < count; i++ {
		requirements := make(map[string]float64)
		reqCount := rand.Intn(2) + 1
		for _, j := range rand.Perm(len(skillPool))[:reqCount] {
			requirements[skillPool[j]] = float64(rand.Intn(61)+20) / 100
		}

		dependencies := make([]string, 0)
		if i > 0 {
			depCount := rand.Intn(3)
			for _, j := range rand.Perm(i) {
				if len(dependencies) >= depCount {
					break
				}
				dependencies = append(dependencies, fmt.Sprintf("T%02d", j+1))
			}
		}

		tasks[i] = &domain.Task{
			TaskKey:           fmt.Sprintf("T%02d", i+1),
			Name:              fmt.Sprintf("任务%02d", i+1),
			EstimatedHours:    float64(rand.Intn(16) + 1),
			SkillRequirements: requirements,
			Dependencies:      dependencies,
		}
	}

	return tasks
}
